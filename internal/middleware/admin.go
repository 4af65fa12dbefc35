package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rulehub/rulehub-backend/internal/common"
	"github.com/rulehub/rulehub-backend/pkg/jwt"
)

// RequireAdmin checks that the authenticated user has admin level (>= 10)
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserLevel(c) < jwt.AdminLevel {
			common.ErrorResponse(c, http.StatusForbidden, "관리자 권한이 필요합니다", common.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
