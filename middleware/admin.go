package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/gympoints/utils"
)

// ContextAdminKey stores the authenticated operator's subject in Gin context.
const ContextAdminKey = "admin_subject"

// AdminRequired ensures the request carries a valid admin bearer token.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Abort(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Abort(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Abort(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Abort(ctx, http.StatusUnauthorized, 40105, "invalid token")
			return
		}
		if claims.Role != utils.RoleAdmin {
			utils.Abort(ctx, http.StatusForbidden, 40301, "admin role required")
			return
		}

		ctx.Set(ContextAdminKey, claims.Subject)
		ctx.Next()
	}
}
