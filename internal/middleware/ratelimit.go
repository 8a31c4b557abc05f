package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"chatter/internal/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const defaultCleanupInterval = 5 * time.Minute

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// CleanupInterval is how often idle limiters are dropped.
	CleanupInterval time.Duration
}

// FromConfig converts a configured rate into a limiter config.
func FromConfig(rc config.RateConfig) RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: rc.RequestsPerSecond,
		BurstSize:         rc.Burst,
		CleanupInterval:   defaultCleanupInterval,
	}
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	config   RateLimitConfig
}

// NewIPRateLimiter starts a cleanup goroutine that runs until ctx is done.
func NewIPRateLimiter(ctx context.Context, cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}
	limiter := &IPRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		config:   cfg,
	}
	go limiter.cleanupRoutine(ctx)
	return limiter
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists := i.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(i.config.RequestsPerSecond), i.config.BurstSize)
		i.limiters[ip] = limiter
	}
	return limiter
}

// Len reports how many IPs currently hold a limiter.
func (i *IPRateLimiter) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.limiters)
}

// cleanup drops limiters whose bucket has refilled, i.e. idle clients.
func (i *IPRateLimiter) cleanup() {
	i.mu.Lock()
	defer i.mu.Unlock()
	for ip, limiter := range i.limiters {
		if limiter.Tokens() >= float64(i.config.BurstSize) {
			delete(i.limiters, ip)
		}
	}
}

func (i *IPRateLimiter) cleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(i.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.cleanup()
		}
	}
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the socket address.
func getClientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		ip, _, _ := strings.Cut(forwarded, ",")
		ip = strings.TrimSpace(ip)
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if realIP := strings.TrimSpace(c.GetHeader("X-Real-IP")); realIP != "" {
		if net.ParseIP(realIP) != nil {
			return realIP
		}
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}

func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.GetLimiter(getClientIP(c)).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please slow down",
			})
			return
		}
		c.Next()
	}
}
