package security

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"marketplace-chat/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// JWTVerifier validates HMAC-signed tokens issued by the platform.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier returns a verifier for the shared secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses the token and extracts the user identity. The user id comes
// from a numeric user_id claim, or from a numeric sub.
func (v *JWTVerifier) Verify(ctx context.Context, tokenStr string) (models.Identity, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.Identity{}, ErrInvalidToken
	}

	identity := models.Identity{}
	if name, ok := claims["username"].(string); ok {
		identity.Username = name
	}
	switch id := claims["user_id"].(type) {
	case float64:
		identity.UserID = int64(id)
	case string:
		identity.UserID, _ = strconv.ParseInt(id, 10, 64)
	}
	if identity.UserID == 0 {
		sub, _ := claims.GetSubject()
		identity.UserID, _ = strconv.ParseInt(sub, 10, 64)
	}
	if identity.UserID <= 0 {
		return models.Identity{}, fmt.Errorf("%w: missing user id claim", ErrInvalidToken)
	}
	return identity, nil
}
