package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/facility-reservation/internal/config"
)

// responseRecorder tees the response body up to a size limit while
// forwarding everything to the client.
type responseRecorder struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (rr *responseRecorder) WriteHeader(code int) {
    rr.status = code
    rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
    if remain := rr.limit - rr.size; remain > 0 {
        if int64(len(b)) <= remain {
            rr.buf.Write(b)
        } else {
            rr.buf.Write(b[:remain])
        }
    }
    rr.size += int64(len(b))
    return rr.ResponseWriter.Write(b)
}

// cacheKey derives the Redis key from the matched route and query
// string.  The route pattern (not the raw path) keeps keys stable across
// path parameters; the sha1 keeps arbitrary query strings out of the
// keyspace.
func cacheKey(prefix string, c echo.Context) string {
    sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
    return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// Cached entries pack status, headers and body into one value:
// [4 bytes status][4 bytes header length][header JSON][body].
func encodeCached(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodeCached(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    header = make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, header, bs[8+hlen:], true
}

// NewRedisCache caches successful GET responses for the public facility
// routes.  Headers are replayed along with the body so cached and fresh
// responses are byte-identical to the client; an X-Cache header reports
// hits and misses.  With no Redis client the middleware is pass-through.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet {
                return next(c)
            }

            ctx := c.Request().Context()
            key := cacheKey(cfg.Prefix, c)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodeCached(bs); ok {
                    for k, vals := range hdr {
                        if strings.EqualFold(k, "Content-Length") {
                            continue
                        }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    if len(body) > 0 {
                        _, _ = c.Response().Write(body)
                    }
                    return nil
                }
            }

            rec := &responseRecorder{
                ResponseWriter: c.Response().Writer,
                status:         http.StatusOK,
                limit:          int64(cfg.MaxBodyBytes),
            }
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }

            // Only complete 200 responses are cached; a body that hit the
            // recorder limit is incomplete.
            if rec.status == http.StatusOK && rec.size <= rec.limit {
                hdr := make(http.Header, len(c.Response().Header()))
                for k, vals := range c.Response().Header() {
                    hdr[k] = append([]string(nil), vals...)
                }
                if payload, err := encodeCached(rec.status, hdr, rec.buf.Bytes()); err == nil {
                    _ = rdb.SetEx(context.Background(), key, payload, cfg.TTL).Err()
                }
            }
            return nil
        }
    }
}
