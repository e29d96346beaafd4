package service

import (
	"context"
	"testing"
	"time"

	"healthcare-booking-service/internal/domain/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSlotCache(t *testing.T) (*SlotCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewSlotCache(client, time.Minute, log), mr
}

var morning = []entity.SlotGroup{{
	ConsultationType: "in_person",
	Fee:              decimal.NewFromInt(100),
	Slots:            []entity.TimeSlot{{StartTime: "09:00", EndTime: "09:30"}},
}}

func TestSlotCache_StoreAndLookup(t *testing.T) {
	cache, _ := newTestSlotCache(t)
	ctx := context.Background()
	doctorID := uuid.New()

	_, ticket, hit := cache.Lookup(ctx, doctorID, "2030-01-07", "", 1)
	require.False(t, hit)
	require.NotNil(t, ticket)

	cache.Store(ctx, ticket, morning)

	groups, _, hit := cache.Lookup(ctx, doctorID, "2030-01-07", "", 1)
	require.True(t, hit)
	require.Len(t, groups, 1)
	assert.Equal(t, "09:00", groups[0].Slots[0].StartTime)

	// A different filter or version is a different entry.
	_, _, hit = cache.Lookup(ctx, doctorID, "2030-01-07", "video", 1)
	assert.False(t, hit)
	_, _, hit = cache.Lookup(ctx, doctorID, "2030-01-07", "", 2)
	assert.False(t, hit)
}

func TestSlotCache_InvalidateDropsEntriesAndStaleWrites(t *testing.T) {
	cache, _ := newTestSlotCache(t)
	ctx := context.Background()
	doctorID := uuid.New()

	_, stale, _ := cache.Lookup(ctx, doctorID, "2030-01-07", "", 1)
	cache.Store(ctx, stale, morning)

	cache.Invalidate(ctx, doctorID, "2030-01-07")
	_, _, hit := cache.Lookup(ctx, doctorID, "2030-01-07", "", 1)
	assert.False(t, hit)

	// A result computed before the invalidation lands under the old generation.
	cache.Store(ctx, stale, morning)
	_, _, hit = cache.Lookup(ctx, doctorID, "2030-01-07", "", 1)
	assert.False(t, hit)
}

func TestSlotCache_Expires(t *testing.T) {
	cache, mr := newTestSlotCache(t)
	ctx := context.Background()
	doctorID := uuid.New()

	_, ticket, _ := cache.Lookup(ctx, doctorID, "2030-01-07", "", 1)
	cache.Store(ctx, ticket, morning)

	mr.FastForward(2 * time.Minute)
	_, _, hit := cache.Lookup(ctx, doctorID, "2030-01-07", "", 1)
	assert.False(t, hit)
}

func TestSlotCache_NilAlwaysMisses(t *testing.T) {
	var cache *SlotCache
	_, ticket, hit := cache.Lookup(context.Background(), uuid.New(), "2030-01-07", "", 1)
	assert.False(t, hit)
	assert.Nil(t, ticket)
	cache.Store(context.Background(), ticket, morning)
	cache.Invalidate(context.Background(), uuid.New(), "2030-01-07")
}

func TestSlotCache_RedisDownMisses(t *testing.T) {
	cache, mr := newTestSlotCache(t)
	mr.Close()

	_, ticket, hit := cache.Lookup(context.Background(), uuid.New(), "2030-01-07", "", 1)
	assert.False(t, hit)
	assert.Nil(t, ticket)
}
