package middleware

import (
	"net/http"
	"time"

	"github.com/CorrelAid/form_upload_processor/models"
	"github.com/didip/tollbooth"
	"github.com/didip/tollbooth/limiter"
	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware allows maxRequests per minute per client ip. Zero
// disables limiting. The burst is never below one request.
func RateLimitMiddleware(maxRequests float64) gin.HandlerFunc {
	if maxRequests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	perSecond := maxRequests / 60.0
	lmt := tollbooth.NewLimiter(perSecond, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Minute})
	burst := int(maxRequests)
	if burst < 1 {
		burst = 1
	}
	lmt.SetBurst(burst)
	lmt.SetIPLookups([]string{"RemoteAddr", "X-Forwarded-For", "X-Real-IP"})

	return func(c *gin.Context) {
		httpError := tollbooth.LimitByRequest(lmt, c.Writer, c.Request)
		if httpError != nil {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Detail: "The API is at capacity, try again later.",
			})
			return
		}
		c.Next()
	}
}
