package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/retrato-app/retrato/api/common"
	"github.com/retrato-app/retrato/internal/auth"
)

// ContextOwnerIDKey 上下文中的所有者标识键
const ContextOwnerIDKey = "owner_id"

// BearerAuth 校验 Bearer 令牌并将所有者标识注入上下文
func BearerAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "No Authorization request header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 {
			common.RespondErrorAbort(c, http.StatusBadRequest, "Authorization field format error")
			return
		}
		if parts[0] != "Bearer" {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Unsupported authentication scheme")
			return
		}

		ownerID, err := tokens.ParseToken(parts[1])
		if err != nil {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ContextOwnerIDKey, ownerID)
		c.Next()
	}
}

// OwnerID 从上下文读取所有者标识
func OwnerID(c *gin.Context) string {
	return c.GetString(ContextOwnerIDKey)
}
