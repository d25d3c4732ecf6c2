package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const rateWindow = 24 * time.Hour

// ReportRateLimiter caps report submissions per user per day. A nil client disables it.
func ReportRateLimiter(client *redis.Client, prefix string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil {
			c.Next()
			return
		}

		userID := c.GetString(UserIDKey)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
			return
		}

		ctx := c.Request.Context()
		userKey := prefix + ":" + userID

		count, err := client.Incr(ctx, userKey).Result()
		if err != nil {
			// fail open
			log.WithError(err).Warn("rate limiter unavailable")
			c.Next()
			return
		}

		// TTL only on the first increment so the window is fixed
		if count == 1 {
			if err := client.Expire(ctx, userKey, rateWindow).Err(); err != nil {
				log.WithError(err).WithField("key", userKey).Warn("rate limiter expire failed")
			}
		}

		if count > int64(limit) {
			retryAfter, _ := client.TTL(ctx, userKey).Result()
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message":     "Daily report limit reached, try again later",
				"retry_after": retryAfter.Seconds(),
			})
			return
		}

		c.Next()
	}
}
