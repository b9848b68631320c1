package middleware

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Public search endpoint limits (per IP). Search is the most
	// expensive read path even with caching in front of it.
	SearchMax        int
	SearchExpiration time.Duration

	// Admin endpoint limits (per IP). Reindex clears the whole cache;
	// hammering it would keep the site permanently cold.
	AdminMax        int
	AdminExpiration time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		// Search: 60/min = 1 req/sec per IP
		SearchMax:        60,
		SearchExpiration: 1 * time.Minute,

		// Admin: 10/min
		AdminMax:        10,
		AdminExpiration: 1 * time.Minute,
	}
}

// LoadRateLimitConfig loads config from environment variables with defaults
func LoadRateLimitConfig() *RateLimitConfig {
	config := DefaultRateLimitConfig()

	if v := os.Getenv("RATE_LIMIT_SEARCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.SearchMax = n
		}
	}

	if v := os.Getenv("RATE_LIMIT_ADMIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.AdminMax = n
		}
	}

	// Development mode: more lenient limits
	if os.Getenv("ENVIRONMENT") == "development" {
		config.SearchMax = 1000
		config.AdminMax = 100
		log.Println("⚠️  [RATE-LIMIT] Development mode: using relaxed rate limits")
	}

	return config
}

// SearchRateLimiter creates a rate limiter for the public search endpoint
func SearchRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.SearchMax,
		Expiration: config.SearchExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "search:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Search limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many requests. Please slow down.",
				"retry_after": int(config.SearchExpiration.Seconds()),
			})
		},
	})
}

// AdminRateLimiter creates a rate limiter for the admin endpoints
func AdminRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.AdminMax,
		Expiration: config.AdminExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "admin:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Admin limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many requests. Please slow down.",
				"retry_after": int(config.AdminExpiration.Seconds()),
			})
		},
	})
}
