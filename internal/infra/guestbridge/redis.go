package guestbridge

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"flightshare/internal/domain/guest"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "guest_bridge:"

// RedisStore keeps bridges as JSON values that Redis expires on its own.
// Take uses GETDEL so a bridge can be consumed exactly once.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, now func() time.Time) *RedisStore {
	if now == nil {
		now = time.Now
	}
	return &RedisStore{client: client, now: now}
}

func key(ticketID uuid.UUID) string {
	return keyPrefix + ticketID.String()
}

func (s *RedisStore) Save(ctx context.Context, b guest.Bridge) error {
	ttl := b.TTL(s.now())
	if ttl <= 0 {
		return errs.Mark(errs.New("guest bridge already expired"), errs.ErrContinuationExpired)
	}

	payload, err := json.Marshal(b)
	if err != nil {
		return errs.Wrap(err, "failed to encode guest bridge")
	}

	ok, err := s.client.SetNX(ctx, key(b.TicketID), payload, ttl).Result()
	if err != nil {
		return errs.Wrap(err, "failed to save guest bridge")
	}
	if !ok {
		return shared.ErrBridgeExists
	}
	return nil
}

func (s *RedisStore) Take(ctx context.Context, ticketID uuid.UUID) (guest.Bridge, error) {
	raw, err := s.client.GetDel(ctx, key(ticketID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return guest.Bridge{}, shared.ErrBridgeNotFound
		}
		return guest.Bridge{}, errs.Wrap(err, "failed to take guest bridge")
	}

	var b guest.Bridge
	if err := json.Unmarshal(raw, &b); err != nil {
		return guest.Bridge{}, errs.Wrap(err, "failed to decode guest bridge")
	}
	return b, nil
}
