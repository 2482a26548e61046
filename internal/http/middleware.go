package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"library-manager/internal/domain"
)

const principalKey = "principal"

// authRequired parses the bearer token and resolves the principal for the
// request. The user is re-read from the store so a deleted account is
// rejected even while its token is still unexpired.
func (h *Handler) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing bearer token"})
			return
		}

		claims, err := h.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}

		user, err := h.users.GetByGUID(c.Request.Context(), claims.Subject)
		if err != nil || !user.Status.IsActive() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}

		c.Set(principalKey, user.AsPrincipal())
		c.Next()
	}
}

// requireRole gates a route to the given roles.
func (h *Handler) requireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing principal"})
			return
		}
		for _, role := range roles {
			if p.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "insufficient role"})
	}
}

// requireStaff gates a route to librarians and admins.
func (h *Handler) requireStaff() gin.HandlerFunc {
	return h.requireRole(domain.RoleLibrarian, domain.RoleAdmin)
}

func principalFrom(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}
