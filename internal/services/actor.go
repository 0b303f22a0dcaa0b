package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"marketplace-chat/internal/models"
	"marketplace-chat/internal/repositories"
)

// TokenVerifier validates a bearer credential.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (models.Identity, error)
}

// ActorResolver turns an authenticated identity into a ChatActor by loading
// the user and its role set from the directory.
type ActorResolver struct {
	users repositories.UserDirectory
}

// NewActorResolver constructs an ActorResolver.
func NewActorResolver(users repositories.UserDirectory) *ActorResolver {
	return &ActorResolver{users: users}
}

// Resolve loads the actor for identity.
func (r *ActorResolver) Resolve(ctx context.Context, identity *models.Identity) (models.ChatActor, error) {
	if identity == nil || identity.UserID == 0 {
		return models.ChatActor{}, ErrUnauthenticated
	}
	user, err := r.users.GetUser(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.ChatActor{}, fmt.Errorf("%w: user %d no longer exists", ErrUnauthenticated, identity.UserID)
		}
		return models.ChatActor{}, fmt.Errorf("resolve actor: %w", err)
	}
	return models.NewChatActor(user), nil
}

// Authenticator verifies a raw bearer token and resolves its actor. It is
// shared by the REST middleware and the websocket handshake.
type Authenticator struct {
	verifier TokenVerifier
	resolver *ActorResolver
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(verifier TokenVerifier, resolver *ActorResolver) *Authenticator {
	return &Authenticator{verifier: verifier, resolver: resolver}
}

// Authenticate verifies token and returns the resolved actor.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (models.ChatActor, error) {
	if token == "" {
		return models.ChatActor{}, fmt.Errorf("%w: missing credential", ErrUnauthenticated)
	}
	identity, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return models.ChatActor{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return a.resolver.Resolve(ctx, &identity)
}

// BearerToken strips an optional "Bearer " prefix from an Authorization value.
// Raw tokens are returned unchanged.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	if len(header) >= len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return header
}
