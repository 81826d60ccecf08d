// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements AdminAuth, the shared-secret gate in front of the
// admin/diagnostic surface. The comparison is constant-time and the secret
// never appears in logs (the redacting logger masks the header as well).
//
// Behavior:
//   - No secret configured on the server: every request is rejected 401;
//     an unset ADMIN_SECRET must never mean "open".
//   - Header absent or empty: 401.
//   - Header present but wrong: 403.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderAdminSecret is the request header carrying the admin shared secret.
const HeaderAdminSecret = "X-Admin-Secret"

// AdminAuth returns a middleware that rejects requests whose
// X-Admin-Secret header does not match secret.
func AdminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "admin surface disabled",
			})
			return
		}

		got := c.GetHeader(HeaderAdminSecret)
		if got == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "missing admin secret",
			})
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "forbidden",
				"message": "invalid admin secret",
			})
			return
		}
		c.Next()
	}
}
