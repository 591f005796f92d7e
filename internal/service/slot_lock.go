package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/salon-appointment-booking/internal/repository"
)

// SlotLocker serializes check-and-write sequences for one staff member
// across concurrent booking requests.  Acquire returns a release
// function on success and repository.ErrConflict when another request
// currently holds the lock.
type SlotLocker interface {
	Acquire(ctx context.Context, staffID uint64) (release func(), err error)
}

// RedisSlotLock implements SlotLocker with a short-TTL SETNX key per
// staff id.  The TTL bounds how long a crashed holder can block a slot.
// When Redis is unreachable the lock fails open: the booking proceeds
// without mutual exclusion and the database transaction remains the
// only backstop, which matches the cache-outage policy (an unavailable
// Redis must not block booking).
type RedisSlotLock struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSlotLock builds a lock manager.  ttl <= 0 falls back to ten
// seconds.
func NewRedisSlotLock(rdb *redis.Client, ttl time.Duration) *RedisSlotLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisSlotLock{rdb: rdb, ttl: ttl}
}

// Acquire takes the per-staff lock.  The returned release function is
// always non-nil and safe to defer.
func (l *RedisSlotLock) Acquire(ctx context.Context, staffID uint64) (func(), error) {
	if l.rdb == nil {
		return func() {}, nil
	}
	key := fmt.Sprintf("slotlock:staff:%d", staffID)
	opCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	ok, err := l.rdb.SetNX(opCtx, key, 1, l.ttl).Result()
	if err != nil {
		log.Printf("slotlock: acquire %s failed, proceeding unlocked: %v", key, err)
		return func() {}, nil
	}
	if !ok {
		return func() {}, fmt.Errorf("staff %d is being booked concurrently: %w", staffID, repository.ErrConflict)
	}
	return func() {
		relCtx, relCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer relCancel()
		if err := l.rdb.Del(relCtx, key).Err(); err != nil {
			log.Printf("slotlock: release %s failed (TTL will expire it): %v", key, err)
		}
	}, nil
}

// NoopSlotLock is used when no Redis connection exists at startup.
type NoopSlotLock struct{}

func (NoopSlotLock) Acquire(context.Context, uint64) (func(), error) { return func() {}, nil }
