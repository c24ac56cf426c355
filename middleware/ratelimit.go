package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"docqa-service/internal/config"
	"docqa-service/internal/logger"
	"docqa-service/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

func skipRateLimit(c *gin.Context) bool {
	return c.FullPath() == "/health" || c.FullPath() == "/info"
}

func rejectRateLimited(c *gin.Context, limit, window int) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Header("X-RateLimit-Remaining", "0")
	c.Header("X-RateLimit-Reset", strconv.FormatInt(
		time.Now().Add(time.Duration(window)*time.Second).Unix(), 10))

	utils.RespondWithError(c, http.StatusTooManyRequests,
		"rate_limit_exceeded",
		"Too many requests. Please try again later.",
		gin.H{
			"retry_after": window,
			"limit":       limit,
		})
	c.Abort()
}

// RateLimitMiddleware implements rate limiting using Redis
// It limits requests per IP + endpoint combination
func RateLimitMiddleware(rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	window := time.Duration(cfg.RateLimitWindow) * time.Second
	return func(c *gin.Context) {
		if skipRateLimit(c) {
			c.Next()
			return
		}

		key := "docqa:ratelimit:" + c.ClientIP() + ":" + c.FullPath()

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// fail open
			logger.Warn("Rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(cfg.RateLimitReqs) {
			rejectRateLimited(c, cfg.RateLimitReqs, cfg.RateLimitWindow)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RateLimitReqs))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(cfg.RateLimitReqs-int(count)))
		c.Next()
	}
}

// LocalRateLimit is the single-process variant used when Redis is not configured.
// Each client IP gets a token bucket refilled at RateLimitReqs per window.
func LocalRateLimit(cfg *config.Config) gin.HandlerFunc {
	var mu sync.Mutex
	// TODO: evict limiters for IPs that have been idle longer than the window
	limiters := make(map[string]*rate.Limiter)
	every := time.Duration(cfg.RateLimitWindow) * time.Second / time.Duration(max(cfg.RateLimitReqs, 1))

	return func(c *gin.Context) {
		if skipRateLimit(c) {
			c.Next()
			return
		}

		ip := c.ClientIP()
		mu.Lock()
		lim, ok := limiters[ip]
		if !ok {
			lim = rate.NewLimiter(rate.Every(every), cfg.RateLimitReqs)
			limiters[ip] = lim
		}
		mu.Unlock()

		if !lim.Allow() {
			rejectRateLimited(c, cfg.RateLimitReqs, cfg.RateLimitWindow)
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RateLimitReqs))
		c.Next()
	}
}
