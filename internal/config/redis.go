package config

import (
    "context"
    "time"

    "github.com/redis/go-redis/v9"
)

// NewRedisClient builds the Redis client backing the rate limiter and
// the response cache from REDIS_HOST, REDIS_PORT, REDIS_PASSWORD and
// REDIS_DB.  Redis is an optional dependency here: when the ping fails
// the function returns nil and both middlewares degrade to pass-through,
// so the booking API stays up without it.
func NewRedisClient() *redis.Client {
    addr := envStr("REDIS_HOST", "localhost") + ":" + envStr("REDIS_PORT", "6379")
    client := redis.NewClient(&redis.Options{
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
    })

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
