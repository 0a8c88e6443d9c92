package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter 按 key 限流
type RateLimiter interface {
	// Allow 判断 key 的请求是否允许通过
	Allow(ctx context.Context, key string) (bool, error)
}

// 令牌桶算法的Lua脚本，时间单位为毫秒
var tokenBucketScript = redis.NewScript(`
local tokens_key = KEYS[1] .. ":tokens"
local timestamp_key = KEYS[1] .. ":ts"
local now = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local burst = tonumber(ARGV[3])

local tokens = tonumber(redis.call("get", tokens_key) or burst)
local last_update = tonumber(redis.call("get", timestamp_key) or now)

-- 按经过的时间补充令牌
local elapsed = math.max(0, now - last_update)
tokens = math.min(burst, tokens + elapsed * rate / 1000)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

-- 桶填满所需时间后键自动过期
local ttl = math.ceil(burst / rate) + 1
redis.call("setex", tokens_key, ttl, tokens)
redis.call("setex", timestamp_key, ttl, now)

return allowed
`)

// TokenBucketRateLimiter 基于 Redis 的令牌桶，多实例共享配额
type TokenBucketRateLimiter struct {
	client    *redis.Client
	keyPrefix string
	rate      int // 每秒生成的令牌数量
	burst     int // 令牌桶最大容量
	now       func() time.Time
}

// NewTokenBucketRateLimiter 创建 Redis 令牌桶限流器
func NewTokenBucketRateLimiter(client *redis.Client, keyPrefix string, rate, burst int) *TokenBucketRateLimiter {
	return &TokenBucketRateLimiter{
		client:    client,
		keyPrefix: fmt.Sprintf("rate_limit:%s", keyPrefix),
		rate:      rate,
		burst:     burst,
		now:       time.Now,
	}
}

// Allow 判断请求是否允许通过
func (l *TokenBucketRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.client == nil {
		return false, ErrRedisNotAvailable
	}
	res, err := tokenBucketScript.Run(ctx, l.client,
		[]string{l.keyPrefix + ":" + key},
		l.now().UnixMilli(), l.rate, l.burst,
	).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// LocalRateLimiter 进程内令牌桶，每个 key 一个 rate.Limiter
type LocalRateLimiter struct {
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	limiters map[string]*localEntry
	ttl      time.Duration
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalRateLimiter 创建进程内限流器
func NewLocalRateLimiter(r, burst int) *LocalRateLimiter {
	return &LocalRateLimiter{
		rate:     rate.Limit(r),
		burst:    burst,
		limiters: make(map[string]*localEntry),
		ttl:      10 * time.Minute,
	}
}

// Allow 判断请求是否允许通过
func (l *LocalRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	e, ok := l.limiters[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

// Cleanup 清理长时间未使用的限流器
func (l *LocalRateLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-l.ttl)
	for key, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// UserRateLimiter 先检查全局配额，再检查用户配额
type UserRateLimiter struct {
	global RateLimiter
	user   RateLimiter
}

// NewUserRateLimiter 有 Redis 客户端时使用 Redis 令牌桶，否则使用进程内限流
func NewUserRateLimiter(client *redis.Client, keyPrefix string, globalRate, globalBurst, userRate, userBurst int) *UserRateLimiter {
	if client == nil {
		return &UserRateLimiter{
			global: NewLocalRateLimiter(globalRate, globalBurst),
			user:   NewLocalRateLimiter(userRate, userBurst),
		}
	}
	return &UserRateLimiter{
		global: NewTokenBucketRateLimiter(client, keyPrefix+":global", globalRate, globalBurst),
		user:   NewTokenBucketRateLimiter(client, keyPrefix+":user", userRate, userBurst),
	}
}

// Scope 拒绝请求的配额范围
type Scope string

const (
	ScopeNone   Scope = ""
	ScopeGlobal Scope = "global"
	ScopeUser   Scope = "user"
)

// AllowUser 判断用户请求是否允许通过，拒绝时返回触发的范围。
// 先检查用户桶，被用户配额拒绝的请求不消耗全局配额。
func (l *UserRateLimiter) AllowUser(ctx context.Context, userKey string) (Scope, error) {
	allowed, err := l.user.Allow(ctx, userKey)
	if err != nil {
		return ScopeNone, err
	}
	if !allowed {
		return ScopeUser, nil
	}

	allowed, err = l.global.Allow(ctx, "all")
	if err != nil {
		return ScopeNone, err
	}
	if !allowed {
		return ScopeGlobal, nil
	}
	return ScopeNone, nil
}

// Cleanup 清理进程内限流器的过期条目
func (l *UserRateLimiter) Cleanup() {
	for _, rl := range []RateLimiter{l.global, l.user} {
		if local, ok := rl.(*LocalRateLimiter); ok {
			local.Cleanup()
		}
	}
}
