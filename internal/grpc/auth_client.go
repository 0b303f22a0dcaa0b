package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"marketplace-chat/internal/models"
)

const validateTokenMethod = "/auth.AuthService/ValidateToken"

var ErrInvalidToken = errors.New("invalid token")

// AuthClient verifies bearer tokens against the auth-service.
type AuthClient struct {
	conn grpc.ClientConnInterface
}

// NewAuthClient constructs the wrapper.
func NewAuthClient(conn grpc.ClientConnInterface) *AuthClient {
	return &AuthClient{conn: conn}
}

// Verify validates the JWT and returns the authenticated identity.
func (a *AuthClient) Verify(ctx context.Context, token string) (models.Identity, error) {
	req, err := structpb.NewStruct(map[string]any{"token": token})
	if err != nil {
		return models.Identity{}, err
	}
	resp := &structpb.Struct{}
	if err := a.conn.Invoke(ctx, validateTokenMethod, req, resp); err != nil {
		return models.Identity{}, err
	}

	fields := resp.GetFields()
	userID := int64(fields["user_id"].GetNumberValue())
	if !fields["valid"].GetBoolValue() || userID == 0 {
		return models.Identity{}, ErrInvalidToken
	}
	return models.Identity{UserID: userID, Username: fields["username"].GetStringValue()}, nil
}
