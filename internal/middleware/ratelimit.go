package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/facility-reservation/internal/config"
)

// tokenBucketScript refills and drains a bucket atomically in Redis so
// every API instance shares one view of a caller's budget.  It returns
// {allowed, tokens remaining, ms until the next refill}.
var tokenBucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])

    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
    if intervals > 0 then
        tokens = math.min(capacity, tokens + (intervals * refill_tokens))
        last_refill = last_refill + (intervals * interval_ms)
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
    end

    redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
    redis.call('EXPIRE', key, ttl_seconds)

    return { allowed, tokens, retry_after_ms }
`)

// NewTokenBucket rate-limits the auth and public browsing endpoints.
// Buckets are keyed per caller and route, so one user hammering the
// availability query cannot exhaust another caller's budget.  Redis
// errors fail open.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg.Prefix, c)
            args := []interface{}{
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL / time.Second),
            }

            vals, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
            if err != nil {
                if cfg.Debug {
                    c.Logger().Warnf("ratelimit: script failed for key=%s: %v", key, err)
                }
                return next(c)
            }
            arr, ok := vals.([]interface{})
            if !ok || len(arr) != 3 {
                if cfg.Debug {
                    c.Logger().Warnf("ratelimit: unexpected script result for key=%s: %#v", key, vals)
                }
                return next(c)
            }
            allowed := scriptInt(arr[0]) == 1
            remaining := scriptInt(arr[1])
            retryMs := scriptInt(arr[2])

            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

            if !allowed {
                secs := int(math.Ceil(float64(retryMs) / 1000.0))
                c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error":       "too_many_requests",
                    "message":     "rate limit exceeded",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}

// rateKey scopes a bucket to caller identity and route: client IP, the
// authenticated user when present, and the route pattern.
func rateKey(prefix string, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    route := c.Request().Method + " " + c.Path()
    return strings.Join([]string{prefix, "ip", ip, "user", currentUserID(c), "route", route}, ":")
}

func scriptInt(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil {
            return n
        }
    }
    return 0
}
