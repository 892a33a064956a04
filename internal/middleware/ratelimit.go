package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimitMiddleware enforces per-second, per-day, and per-month request
// budgets for the authenticated partner, each tracked as its own Redis
// counter so a burst against one window doesn't consume another.
func RateLimitMiddleware(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		partner, ok := c.Locals("partner").(*PartnerContext)
		if !ok {
			return c.Next()
		}

		rateLimits, ok := c.Locals("rate_limits").(map[string]int)
		if !ok {
			rateLimits = map[string]int{
				"per_second": 10,
				"per_day":    10000,
				"per_month":  300000,
			}
		}

		ctx := context.Background()
		now := time.Now()

		keySecond := fmt.Sprintf("rl:partner:%s:second:%d", partner.PartnerID, now.Unix())
		keyDay := fmt.Sprintf("rl:partner:%s:day:%s", partner.PartnerID, now.Format("2006-01-02"))
		keyMonth := fmt.Sprintf("rl:partner:%s:month:%s", partner.PartnerID, now.Format("2006-01"))

		tomorrow := now.AddDate(0, 0, 1)
		midnight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, tomorrow.Location())
		firstOfNextMonth := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())

		windows := []rateWindow{
			{suffix: "Second", errorCode: "rate_limit_exceeded", message: "Too many requests per second", key: keySecond, limit: rateLimits["per_second"], ttl: 2 * time.Second, resetAt: now.Add(time.Second)},
			{suffix: "Day", errorCode: "daily_quota_exceeded", message: "Daily quota exceeded", key: keyDay, limit: rateLimits["per_day"], ttl: 25 * time.Hour, resetAt: midnight},
			{suffix: "Month", errorCode: "monthly_quota_exceeded", message: "Monthly quota exceeded", key: keyMonth, limit: rateLimits["per_month"], ttl: 32 * 24 * time.Hour, resetAt: firstOfNextMonth},
		}

		for _, win := range windows {
			if exceeded, resp := win.check(c, rdb, ctx); exceeded {
				return resp
			}
		}

		c.Set("X-RateLimit-Limit-Second", strconv.Itoa(rateLimits["per_second"]))
		c.Set("X-RateLimit-Limit-Day", strconv.Itoa(rateLimits["per_day"]))
		c.Set("X-RateLimit-Limit-Month", strconv.Itoa(rateLimits["per_month"]))

		c.Locals("rate_limit_counts", map[string]int64{
			"second": getCurrentCount(ctx, rdb, keySecond),
			"day":    getCurrentCount(ctx, rdb, keyDay),
			"month":  getCurrentCount(ctx, rdb, keyMonth),
		})

		return c.Next()
	}
}

// rateWindow is one Redis-backed counting window (second/day/month) checked
// by RateLimitMiddleware.
type rateWindow struct {
	suffix    string
	errorCode string
	message   string
	key       string
	limit     int
	ttl       time.Duration
	resetAt   time.Time
}

// check increments the window's counter and, if the limit is now exceeded,
// writes the 429 response itself and reports exceeded=true so the caller
// returns immediately without touching further windows.
func (w rateWindow) check(c *fiber.Ctx, rdb *redis.Client, ctx context.Context) (bool, error) {
	if w.limit <= 0 {
		return false, nil
	}
	count, err := rdb.Incr(ctx, w.key).Result()
	if err != nil {
		return false, nil
	}
	rdb.Expire(ctx, w.key, w.ttl)

	if count <= int64(w.limit) {
		c.Set("X-RateLimit-Remaining-"+w.suffix, strconv.FormatInt(int64(w.limit)-count, 10))
		return false, nil
	}

	retryAfter := int64(time.Until(w.resetAt).Seconds())
	if retryAfter < 0 {
		retryAfter = 0
	}
	c.Set("X-RateLimit-Limit-"+w.suffix, strconv.Itoa(w.limit))
	c.Set("X-RateLimit-Remaining-"+w.suffix, "0")
	c.Set("X-RateLimit-Reset-"+w.suffix, strconv.FormatInt(w.resetAt.Unix(), 10))
	c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

	resp := c.Status(429).JSON(fiber.Map{
		"error":       w.errorCode,
		"message":     w.message,
		"limit_type":  "per_" + toLowerSuffix(w.suffix),
		"limit":       w.limit,
		"used":        count,
		"retry_after": retryAfter,
		"reset_at":    w.resetAt.Format(time.RFC3339),
	})
	return true, resp
}

func toLowerSuffix(s string) string {
	switch s {
	case "Second":
		return "second"
	case "Day":
		return "day"
	case "Month":
		return "month"
	default:
		return s
	}
}

func getCurrentCount(ctx context.Context, rdb *redis.Client, key string) int64 {
	val, err := rdb.Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return val
}

// ResetRateLimit clears a partner's counter for one window, an admin escape
// hatch for support cases (a partner mis-provisioned, a stuck integration).
func ResetRateLimit(rdb *redis.Client, partnerID string, period string) error {
	ctx := context.Background()
	now := time.Now()

	var key string
	switch period {
	case "second":
		key = fmt.Sprintf("rl:partner:%s:second:%d", partnerID, now.Unix())
	case "day":
		key = fmt.Sprintf("rl:partner:%s:day:%s", partnerID, now.Format("2006-01-02"))
	case "month":
		key = fmt.Sprintf("rl:partner:%s:month:%s", partnerID, now.Format("2006-01"))
	default:
		return fmt.Errorf("invalid period: %s", period)
	}

	return rdb.Del(ctx, key).Err()
}

// GetRateLimitStatus reports current usage against each window's limit,
// without incrementing any counter.
func GetRateLimitStatus(rdb *redis.Client, partnerID string, rateLimits map[string]int) map[string]interface{} {
	ctx := context.Background()
	now := time.Now()

	keySecond := fmt.Sprintf("rl:partner:%s:second:%d", partnerID, now.Unix())
	keyDay := fmt.Sprintf("rl:partner:%s:day:%s", partnerID, now.Format("2006-01-02"))
	keyMonth := fmt.Sprintf("rl:partner:%s:month:%s", partnerID, now.Format("2006-01"))

	countSecond := getCurrentCount(ctx, rdb, keySecond)
	countDay := getCurrentCount(ctx, rdb, keyDay)
	countMonth := getCurrentCount(ctx, rdb, keyMonth)

	return map[string]interface{}{
		"second": map[string]interface{}{
			"limit":     rateLimits["per_second"],
			"used":      countSecond,
			"remaining": maxInt64(0, int64(rateLimits["per_second"])-countSecond),
		},
		"day": map[string]interface{}{
			"limit":     rateLimits["per_day"],
			"used":      countDay,
			"remaining": maxInt64(0, int64(rateLimits["per_day"])-countDay),
		},
		"month": map[string]interface{}{
			"limit":     rateLimits["per_month"],
			"used":      countMonth,
			"remaining": maxInt64(0, int64(rateLimits["per_month"])-countMonth),
		},
	}
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
