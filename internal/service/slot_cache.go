package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"healthcare-booking-service/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	slotCacheKeyPrefix = "slots:"
	slotCacheGenPrefix = "slots:gen:"

	// Timeout for individual Redis operations
	slotCacheTimeout = 2 * time.Second
)

// SlotCache is a read model of computed available slots per doctor and date.
//
// Entries live in one hash per doctor/date. A field is addressed by the
// availability version, a per-date generation counter and the consultation
// type filter. Schedule edits bump the version; bookings and releases bump the
// generation. An entry computed before an invalidation is stored under the old
// generation and is never read again.
//
// A nil *SlotCache is valid and always misses.
type SlotCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

// SlotCacheTicket identifies where a freshly computed result should be stored.
type SlotCacheTicket struct {
	key    string
	genKey string
	field  string
}

func NewSlotCache(client *redis.Client, ttl time.Duration, log *logrus.Logger) *SlotCache {
	return &SlotCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Lookup returns cached slot groups if present. On a miss the returned ticket
// can be passed to Store once the slots are computed.
func (c *SlotCache) Lookup(ctx context.Context, doctorID uuid.UUID, date string, consultationType string, version int64) ([]entity.SlotGroup, *SlotCacheTicket, bool) {
	if c == nil {
		return nil, nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, slotCacheTimeout)
	defer cancel()

	gk := genKey(doctorID, date)
	gen, err := c.client.Get(ctx, gk).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warnf("Failed to read slot cache generation for doctor %s on %s: %+v", doctorID, date, err)
		return nil, nil, false
	}

	ticket := &SlotCacheTicket{
		key:    slotKey(doctorID, date),
		genKey: gk,
		field:  fmt.Sprintf("%d:%d:%s", version, gen, consultationType),
	}

	raw, err := c.client.HGet(ctx, ticket.key, ticket.field).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warnf("Failed to read slot cache for doctor %s on %s: %+v", doctorID, date, err)
			return nil, nil, false
		}
		return nil, ticket, false
	}

	var groups []entity.SlotGroup
	if err := json.Unmarshal(raw, &groups); err != nil {
		c.log.Warnf("Discarding unreadable slot cache entry %s/%s: %+v", ticket.key, ticket.field, err)
		return nil, ticket, false
	}
	return groups, ticket, true
}

// Store saves computed slot groups under the ticket obtained from Lookup.
func (c *SlotCache) Store(ctx context.Context, ticket *SlotCacheTicket, groups []entity.SlotGroup) {
	if c == nil || ticket == nil {
		return
	}

	raw, err := json.Marshal(groups)
	if err != nil {
		c.log.Warnf("Failed to encode slot cache entry: %+v", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, slotCacheTimeout)
	defer cancel()

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, ticket.key, ticket.field, raw)
	pipe.Expire(ctx, ticket.key, c.ttl)
	// The generation must outlive every entry stored under it.
	pipe.Expire(ctx, ticket.genKey, 2*c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warnf("Failed to store slot cache %s: %+v", ticket.key, err)
	}
}

// Invalidate drops every cached view of the doctor's slots on date.
func (c *SlotCache) Invalidate(ctx context.Context, doctorID uuid.UUID, date string) {
	if c == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, slotCacheTimeout)
	defer cancel()

	gk := genKey(doctorID, date)
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, gk)
	pipe.Expire(ctx, gk, 2*c.ttl)
	pipe.Del(ctx, slotKey(doctorID, date))
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warnf("Failed to invalidate slot cache for doctor %s on %s: %+v", doctorID, date, err)
		return
	}
	c.log.Debugf("Invalidated slot cache for doctor %s on %s", doctorID, date)
}

func slotKey(doctorID uuid.UUID, date string) string {
	return fmt.Sprintf("%s%s:%s", slotCacheKeyPrefix, doctorID, date)
}

func genKey(doctorID uuid.UUID, date string) string {
	return fmt.Sprintf("%s%s:%s", slotCacheGenPrefix, doctorID, date)
}
