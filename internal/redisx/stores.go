package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/session"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps BFF identities in redis so any replica can serve a sid.
type SessionStore struct {
	RDB *redis.Client
	TTL time.Duration
}

func (s *SessionStore) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return TTLSession
}

func (s *SessionStore) Get(ctx context.Context, sid string) (session.Identity, error) {
	b, err := s.RDB.Get(ctx, SessionKey(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.Identity{}, session.ErrUnknownSession
	}
	if err != nil {
		return session.Identity{}, err
	}
	var id session.Identity
	if err := json.Unmarshal(b, &id); err != nil {
		return session.Identity{}, fmt.Errorf("decode session %s: %w", sid, err)
	}
	return id, nil
}

func (s *SessionStore) Put(ctx context.Context, sid string, id session.Identity) error {
	b, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return s.RDB.Set(ctx, SessionKey(sid), b, s.ttl()).Err()
}

func (s *SessionStore) Delete(ctx context.Context, sid string) error {
	return s.RDB.Del(ctx, SessionKey(sid)).Err()
}

// StatusCache holds the last transaction seen per reference id together with
// the username that created it. Written by the payment watcher and the BFF,
// read by status screens before they hit the backend.
type StatusCache struct {
	RDB *redis.Client
	TTL time.Duration
}

type cachedStatus struct {
	Owner       string             `json:"owner"`
	Transaction orders.Transaction `json:"transaction"`
}

func (c *StatusCache) Get(ctx context.Context, ref string) (tx orders.Transaction, owner string, ok bool, err error) {
	b, err := c.RDB.Get(ctx, PaymentStatusKey(ref)).Bytes()
	if errors.Is(err, redis.Nil) {
		return orders.Transaction{}, "", false, nil
	}
	if err != nil {
		return orders.Transaction{}, "", false, err
	}
	var cs cachedStatus
	if err := json.Unmarshal(b, &cs); err != nil {
		return orders.Transaction{}, "", false, fmt.Errorf("decode status %s: %w", ref, err)
	}
	return cs.Transaction, cs.Owner, true, nil
}

// Put stores tx. Terminal statuses live longer since they never change.
func (c *StatusCache) Put(ctx context.Context, owner string, tx orders.Transaction) error {
	b, err := json.Marshal(cachedStatus{Owner: owner, Transaction: tx})
	if err != nil {
		return err
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = TTLStatusCache
	}
	if tx.Status.Terminal() {
		ttl = TTLDedup
	}
	return c.RDB.Set(ctx, PaymentStatusKey(tx.ReferenceID), b, ttl).Err()
}

// SubmitLock is a SETNX lock per checkout idempotency key.
type SubmitLock struct {
	RDB *redis.Client
	TTL time.Duration
}

func (l *SubmitLock) Acquire(ctx context.Context, key string) (bool, error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = TTLCheckoutLock
	}
	return l.RDB.SetNX(ctx, CheckoutLockKey(key), time.Now().Unix(), ttl).Result()
}

func (l *SubmitLock) Release(ctx context.Context, key string) error {
	return l.RDB.Del(ctx, CheckoutLockKey(key)).Err()
}
