// Package sequence allocates human readable, date-scoped document numbers
// such as INV/2026.10/0007. Every (kind, year, month) pair has its own atomic
// counter.
package sequence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Kind is the document prefix.
type Kind string

const (
	KindPurchaseOrder  Kind = "PO"
	KindGoodsReceipt   Kind = "GR"
	KindInvoice        Kind = "INV"
	KindPayment        Kind = "PAY"
	KindPaymentRequest Kind = "PREQ"
)

// keyTTL keeps a month's counter around long enough for late corrections.
const keyTTL = 400 * 24 * time.Hour

// Allocator hands out document numbers.
type Allocator interface {
	Next(ctx context.Context, kind Kind, at time.Time) (string, error)
}

// Period formats the year-month scope of a number.
func Period(at time.Time) string {
	return at.Format("2006.01")
}

// Format renders a number from its parts.
func Format(kind Kind, at time.Time, seq int64) string {
	return fmt.Sprintf("%s/%s/%04d", kind, Period(at), seq)
}

// RedisAllocator increments counters with INCR. Numbers consumed by a
// transaction that later rolls back are not reused.
type RedisAllocator struct {
	client *redis.Client
	prefix string
}

// NewRedisAllocator constructs the allocator. prefix namespaces keys per
// deployment.
func NewRedisAllocator(client *redis.Client, prefix string) *RedisAllocator {
	if prefix == "" {
		prefix = "dapur"
	}
	return &RedisAllocator{client: client, prefix: prefix}
}

func (a *RedisAllocator) key(kind Kind, at time.Time) string {
	return fmt.Sprintf("%s:seq:%s:%s", a.prefix, kind, Period(at))
}

// Next implements Allocator.
func (a *RedisAllocator) Next(ctx context.Context, kind Kind, at time.Time) (string, error) {
	if a == nil || a.client == nil {
		return "", fmt.Errorf("sequence: redis client not configured")
	}
	key := a.key(kind, at)
	seq, err := a.client.Incr(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("sequence: incr %s: %w", key, err)
	}
	if seq == 1 {
		if err := a.client.Expire(ctx, key, keyTTL).Err(); err != nil {
			return "", fmt.Errorf("sequence: expire %s: %w", key, err)
		}
	}
	return Format(kind, at, seq), nil
}

// Seed raises a counter to at least value, used after restoring a database
// whose numbers ran ahead of redis.
func (a *RedisAllocator) Seed(ctx context.Context, kind Kind, at time.Time, value int64) error {
	key := a.key(kind, at)
	script := redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
if cur < tonumber(ARGV[1]) then
  redis.call('SET', KEYS[1], ARGV[1])
end
return 1`)
	return script.Run(ctx, a.client, []string{key}, value).Err()
}

// MemoryAllocator is an in-process Allocator.
type MemoryAllocator struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryAllocator constructs an empty MemoryAllocator.
func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{counters: make(map[string]int64)}
}

// Next implements Allocator.
func (m *MemoryAllocator) Next(_ context.Context, kind Kind, at time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(kind) + ":" + Period(at)
	m.counters[key]++
	return Format(kind, at, m.counters[key]), nil
}
