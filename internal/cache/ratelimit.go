package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// rateLimitPrefix namespaces per-client token buckets.
const rateLimitPrefix = "ratelimit:api:"

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int64
	// ResetAt is when the bucket will be full again.
	ResetAt time.Time
	// RetryAfter is zero when Allowed, otherwise at least one second.
	RetryAfter time.Duration
}

// tokenBucketScript refills and takes one token atomically. Times are in
// milliseconds so sub-second rates refill smoothly.
//
// Reply: {allowed, wait_ms, remaining, refill_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])
local ttl_ms = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
	tokens = burst
	ts = now_ms
end

local elapsed = math.max(0, now_ms - ts)
tokens = math.min(burst, tokens + elapsed * rate / 1000)

local allowed = 0
local wait_ms = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait_ms = math.ceil((1 - tokens) * 1000 / rate)
end

redis.call('HSET', key, 'tokens', tostring(tokens), 'ts', now_ms)
redis.call('PEXPIRE', key, ttl_ms)

local refill_ms = math.ceil((burst - tokens) * 1000 / rate)
return {allowed, wait_ms, math.floor(tokens), refill_ms}
`)

// CheckIPRateLimit takes one token from the bucket of a client IP. The IP
// is hashed before it is used as a key. Redis failures are returned; the
// caller decides whether to fail open.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 || burst <= 0 {
		return nil, fmt.Errorf("invalid rate limit: %d/s burst %d", ratePerSecond, burst)
	}

	now := time.Now()
	rate := float64(ratePerSecond)

	reply, err := tokenBucketScript.Run(ctx, c.client,
		[]string{rateLimitKey(ip)},
		rate, burst, now.UnixMilli(), bucketTTL(rate, burst).Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(reply) != 4 {
		return nil, fmt.Errorf("rate limit script: unexpected reply %v", reply)
	}

	result := &RateLimitResult{
		Allowed:   reply[0] == 1,
		Remaining: reply[2],
		ResetAt:   now.Add(time.Duration(reply[3]) * time.Millisecond),
	}
	if !result.Allowed {
		result.RetryAfter = retryAfter(reply[1])
	}
	return result, nil
}

// bucketTTL keeps an idle bucket until it would have refilled completely.
func bucketTTL(rate float64, burst int) time.Duration {
	return time.Duration(float64(burst)/rate*float64(time.Second)) + time.Second
}

// retryAfter rounds a wait up to whole seconds, the Retry-After granularity.
func retryAfter(waitMs int64) time.Duration {
	secs := math.Ceil(float64(waitMs) / 1000)
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

func rateLimitKey(ip string) string {
	return rateLimitPrefix + hashIP(ip)
}

// hashIP returns the first 8 bytes of SHA-256(ip) as hex.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8])
}
