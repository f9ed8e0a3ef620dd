package auth

import (
	"net/http"
	"strings"

	"github.com/example/jewelshop/pkg/apperror"
	"github.com/example/jewelshop/pkg/models"
	"github.com/gin-gonic/gin"
)

const principalKey = "auth.principal"

// Require rejects requests without a valid bearer token.
func (m *TokenManager) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abort(c, apperror.Unauthorized("missing bearer token"))
			return
		}

		principal, err := m.Parse(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
		if err != nil {
			abort(c, err)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireAdmin must run after Require.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			abort(c, apperror.Unauthorized("authentication required"))
			return
		}
		if !p.IsAdmin() {
			abort(c, apperror.Forbidden("admin role required"))
			return
		}
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

func abort(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":   apperror.KindOf(err),
		"message": apperror.PublicMessage(err),
	})
}
