package config

import "time"

// CacheConfig tunes the Redis response cache in front of the public
// facility endpoints.  Only GET responses are cached; the TTL is kept
// short so availability answers stay close to the live reservation
// table.  MaxBodyBytes caps the stored response size.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* environment variables with defaults
// suited to the facility browsing surface.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        Prefix:       envStr("CACHE_PREFIX", "facility:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}
