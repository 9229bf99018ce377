package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// IPThrottle caps request bursts per client IP with a token bucket.
// It guards the unauthenticated auth endpoints ahead of the per-account
// lockout, which only applies once a username is known.
type IPThrottle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewIPThrottle allows perMinute requests per IP with the given burst.
func NewIPThrottle(perMinute, burst int) *IPThrottle {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return &IPThrottle{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
	}
}

func (t *IPThrottle) limiter(ip string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[ip]
	if !ok {
		l = rate.NewLimiter(t.limit, t.burst)
		t.limiters[ip] = l
	}
	return l
}

// Allow reports whether another request from ip may proceed now.
func (t *IPThrottle) Allow(ip string) bool {
	return t.limiter(ip).Allow()
}

// Middleware rejects requests over the per-IP budget with 429.
func (t *IPThrottle) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !t.Allow(c.ClientIP()) {
			respondError(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}
		c.Next()
	}
}
