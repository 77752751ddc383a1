package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"slotify/config"
	"slotify/utils"
)

// rateLimiterStore holds a map of IP addresses to their rate limiters.
type rateLimiterStore struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

var limiterStore = &rateLimiterStore{
	limiters: make(map[string]*rate.Limiter),
}

// getLimiter returns the rate limiter for a given IP, creating one if it
// doesn't exist.
func (s *rateLimiterStore) getLimiter(ip string, perMin int) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, exists := s.limiters[ip]
	if !exists {
		burst := perMin / 4
		if burst < 5 {
			burst = 5
		}
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), burst)
		s.limiters[ip] = limiter
	}
	return limiter
}

// RateLimitMiddleware limits public booking traffic per client IP. Over-limit
// requests get a retryable 429 problem, never a partial booking.
func RateLimitMiddleware() gin.HandlerFunc {
	perMin := config.AppConfig.RateLimitPublicPerMin
	if perMin <= 0 {
		perMin = 60
	}
	return func(c *gin.Context) {
		ip := getClientIP(c)
		limiter := limiterStore.getLimiter(ip, perMin)
		if !limiter.Allow() {
			utils.GetLogger().Warn("Rate limit exceeded", zap.String("ip", ip))
			c.Header("Retry-After", "60")
			utils.JSONProblem(c, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded. Try again later.")
			c.Abort()
			return
		}
		c.Next()
	}
}
