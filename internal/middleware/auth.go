package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/models"
	"marketplace-chat/internal/services"
)

// Context keys set by AuthMiddleware.
const (
	ActorKey  = "actor"
	UserIDKey = "userID"
)

// ActorAuthenticator resolves a bearer token to a chat actor.
type ActorAuthenticator interface {
	Authenticate(ctx context.Context, token string) (models.ChatActor, error)
}

// AuthMiddleware validates the Authorization header and stores the resolved
// actor on the gin context. Both "Bearer <token>" and a raw token are accepted.
func AuthMiddleware(auth ActorAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := services.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		actor, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			log.Printf("rest auth rejected path=%s: %v", c.Request.URL.Path, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ActorKey, actor)
		c.Set(UserIDKey, actor.UserID)
		c.Next()
	}
}

// ActorFrom returns the actor stored by AuthMiddleware.
func ActorFrom(c *gin.Context) (models.ChatActor, bool) {
	val, ok := c.Get(ActorKey)
	if !ok {
		return models.ChatActor{}, false
	}
	actor, ok := val.(models.ChatActor)
	return actor, ok
}
