package middleware

import (
	"net/http"
	"strings"

	"github.com/CorrelAid/form_upload_processor/models"
	"github.com/gin-gonic/gin"
)

// DomainWhitelistMiddleware rejects requests whose Host is not listed. An
// empty list lets everything through.
func DomainWhitelistMiddleware(allowedDomains []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(allowedDomains) == 0 {
			c.Next()
			return
		}

		host := c.Request.Host
		allowed := false
		for _, domain := range allowedDomains {
			if strings.EqualFold(domain, host) {
				allowed = true
				break
			}
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{Detail: "Permission denied"})
			return
		}

		c.Next()
	}
}
