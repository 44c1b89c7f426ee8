package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brighterbites/backend/models"
	"github.com/brighterbites/backend/utils"
)

const (
	// ContextActorKey stores the verified models.Actor inside Gin context.
	ContextActorKey = "actor"
	// ContextUserIDKey stores the account ID.
	ContextUserIDKey = "user_id"
	// ContextUserTypeKey stores the account type, parent or child.
	ContextUserTypeKey = "user_type"
	// ContextTokenKey stores the raw bearer token so logout can revoke it.
	ContextTokenKey = "token"
	// ContextClaimsKey stores the parsed claims.
	ContextClaimsKey = "claims"
)

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			ctx.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			ctx.Abort()
			return
		}

		if utils.IsTokenBlacklisted(tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextActorKey, claims.Actor())
		ctx.Set(ContextUserIDKey, claims.ID)
		ctx.Set(ContextUserTypeKey, claims.Type)
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}

// RequireType lets the request through only for the listed account types.
// It must run after AuthRequired.
func RequireType(types ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		actor, ok := ActorFrom(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40106, "authentication required")
			ctx.Abort()
			return
		}
		for _, t := range types {
			if actor.Type == t {
				ctx.Next()
				return
			}
		}
		utils.Error(ctx, http.StatusForbidden, 40301, "access denied for this account type")
		ctx.Abort()
	}
}

// ActorFrom returns the actor stored by AuthRequired.
func ActorFrom(ctx *gin.Context) (models.Actor, bool) {
	v, ok := ctx.Get(ContextActorKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok && actor.ID != 0
}
