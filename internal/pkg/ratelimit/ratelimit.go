// Package ratelimit 固定窗口限流，单机用内存实现，多实例用 Redis 实现
package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Result 一次限流检查的结果
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter 在 window 时间窗口内最多放行 limit 次
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error)
}

func windowStart(now time.Time, window time.Duration) int64 {
	return now.Unix() / int64(window.Seconds())
}

type memoryEntry struct {
	window int64
	count  int
}

// MemoryLimiter 进程内固定窗口限流
type MemoryLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	counters map[string]*memoryEntry
}

func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	if window < time.Second {
		window = time.Minute
	}
	return &MemoryLimiter{
		window:   window,
		counters: make(map[string]*memoryEntry),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	win := windowStart(now, l.window)
	reset := time.Unix((win+1)*int64(l.window.Seconds()), 0)

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.counters[key]
	if entry == nil {
		entry = &memoryEntry{window: win}
		l.counters[key] = entry
	}
	if entry.window != win {
		entry.window = win
		entry.count = 0
	}
	if entry.count >= limit {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	entry.count++
	return Result{Allowed: true, Remaining: limit - entry.count, Reset: reset}, nil
}

var redisIncrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter 基于 Redis INCR 的固定窗口限流
type RedisLimiter struct {
	client *redis.Client
	prefix string
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, prefix string, window time.Duration) *RedisLimiter {
	if window < time.Second {
		window = time.Minute
	}
	return &RedisLimiter{
		client: client,
		prefix: strings.TrimSpace(prefix),
		window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" || l == nil || l.client == nil {
		return Result{Allowed: true}, nil
	}
	win := windowStart(now, l.window)
	reset := time.Unix((win+1)*int64(l.window.Seconds()), 0)
	ttl := int(l.window.Seconds()) + 1

	res, err := redisIncrScript.Run(ctx, l.client, []string{l.buildKey(key, win)}, ttl).Result()
	if err != nil {
		return Result{}, err
	}
	count, ok := res.(int64)
	if !ok {
		return Result{}, errors.New("ratelimit: unexpected redis response type")
	}
	if count > int64(limit) {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	return Result{Allowed: true, Remaining: limit - int(count), Reset: reset}, nil
}

func (l *RedisLimiter) buildKey(key string, win int64) string {
	winStr := strconv.FormatInt(win, 10)
	if l.prefix == "" {
		return key + ":" + winStr
	}
	return l.prefix + ":" + key + ":" + winStr
}
