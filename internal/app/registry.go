// Package app builds the per-visitor application context: the session, an
// API client bound to its token, and the cart mirror. Contexts are handed
// around explicitly; there is no package-level state.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context is everything one visitor's requests share.
type Context struct {
	ID      string
	Session *session.Session
	API     *api.Client
	Cart    *cart.View
	Log     *zap.Logger

	mu       sync.Mutex
	lastSeen time.Time
}

func (c *Context) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *Context) idleSince(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastSeen)
}

type Option func(*Registry)

func WithCartWindow(d time.Duration) Option  { return func(r *Registry) { r.cartWindow = d } }
func WithSyncTimeout(d time.Duration) Option { return func(r *Registry) { r.syncTimeout = d } }
func WithLogger(l *zap.Logger) Option        { return func(r *Registry) { r.log = l } }

// Registry maps session ids to live contexts. Identities are persisted in
// the store so a context can be rebuilt after a restart or on another
// replica; cart state is always reloaded from the backend.
type Registry struct {
	base        *api.Client
	store       session.Store
	log         *zap.Logger
	cartWindow  time.Duration
	syncTimeout time.Duration
	now         func() time.Time

	mu   sync.Mutex
	live map[string]*Context
}

func NewRegistry(base *api.Client, store session.Store, opts ...Option) *Registry {
	r := &Registry{
		base:        base,
		store:       store,
		log:         zap.NewNop(),
		cartWindow:  700 * time.Millisecond,
		syncTimeout: 10 * time.Second,
		now:         time.Now,
		live:        map[string]*Context{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) build(sid string, id session.Identity) *Context {
	log := r.log.With(zap.String("sid", sid))
	sess := session.New(r.base, log)
	sess.Restore(id)
	client := r.base.WithTokens(sess)
	c := &Context{
		ID:      sid,
		Session: sess,
		API:     client,
		Log:     log,
		Cart: cart.NewView(client,
			cart.WithWindow(r.cartWindow),
			cart.WithRequestTimeout(r.syncTimeout),
			cart.WithLogger(log),
			cart.WithNotifier(func(msg string) { sess.Alerts().Error(msg) }),
		),
	}
	c.touch(r.now())
	return c
}

// Create starts an anonymous context under a fresh session id.
func (r *Registry) Create(ctx context.Context) (*Context, error) {
	sid := uuid.NewString()
	if err := r.store.Put(ctx, sid, session.Identity{}); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c := r.build(sid, session.Identity{})
	r.mu.Lock()
	r.live[sid] = c
	r.mu.Unlock()
	return c, nil
}

// Get returns the live context of sid, rebuilding it from the store when
// needed. Unknown ids yield session.ErrUnknownSession.
func (r *Registry) Get(ctx context.Context, sid string) (*Context, error) {
	r.mu.Lock()
	c, ok := r.live[sid]
	r.mu.Unlock()
	if ok {
		c.touch(r.now())
		return c, nil
	}

	id, err := r.store.Get(ctx, sid)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.live[sid]; ok { // lost the race, keep the first one
		c.touch(r.now())
		return c, nil
	}
	c = r.build(sid, id)
	r.live[sid] = c
	return c, nil
}

// Save persists the current identity of c.
func (r *Registry) Save(ctx context.Context, c *Context) error {
	if err := r.store.Put(ctx, c.ID, c.Session.Identity()); err != nil {
		return fmt.Errorf("save session %s: %w", c.ID, err)
	}
	return nil
}

// Authorized runs fn and, when the backend answers 401, refreshes the
// token once and runs fn again. A refreshed identity is persisted.
func (r *Registry) Authorized(ctx context.Context, c *Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if !api.IsUnauthorized(err) || c.Session.Identity().RefreshToken == "" {
		return err
	}
	if _, rerr := c.Session.Refresh(ctx); rerr != nil {
		if errors.Is(rerr, session.ErrNotAuthenticated) {
			c.Cart.Reset()
			_ = r.Save(ctx, c)
			return session.ErrNotAuthenticated
		}
		return err
	}
	if serr := r.Save(ctx, c); serr != nil {
		c.Log.Warn("persist refreshed identity", zap.Error(serr))
	}
	return fn(ctx)
}

// Rebind runs fn, which replaces the identity of c (login, register), then
// resets the cart mirror and persists the new identity. Quantity changes
// still queued for the previous identity are pushed first, under its token.
func (r *Registry) Rebind(ctx context.Context, c *Context, fn func(ctx context.Context) error) error {
	if err := c.Cart.Flush(ctx); err != nil {
		c.Log.Warn("flush cart before identity change", zap.Error(err))
	}
	if err := fn(ctx); err != nil {
		return err
	}
	c.Cart.Reset()
	return r.Save(ctx, c)
}

// Drop ends the context: pending cart syncs are flushed and the stored
// identity is removed.
func (r *Registry) Drop(ctx context.Context, sid string) error {
	r.mu.Lock()
	c, ok := r.live[sid]
	delete(r.live, sid)
	r.mu.Unlock()
	if ok {
		if err := c.Cart.Close(ctx); err != nil {
			c.Log.Warn("cart close", zap.Error(err))
		}
	}
	return r.store.Delete(ctx, sid)
}

// Sweep evicts contexts idle for longer than idle from memory. Their
// identities stay in the store.
func (r *Registry) Sweep(ctx context.Context, idle time.Duration) int {
	now := r.now()
	var evicted []*Context
	r.mu.Lock()
	for sid, c := range r.live {
		if c.idleSince(now) > idle {
			evicted = append(evicted, c)
			delete(r.live, sid)
		}
	}
	r.mu.Unlock()
	for _, c := range evicted {
		if err := c.Cart.Close(ctx); err != nil {
			c.Log.Warn("cart close", zap.Error(err))
		}
	}
	return len(evicted)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(ctx, idle); n > 0 {
				r.log.Debug("evicted idle contexts", zap.Int("count", n))
			}
		}
	}
}

// Close flushes every live cart.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	all := make([]*Context, 0, len(r.live))
	for _, c := range r.live {
		all = append(all, c)
	}
	r.live = map[string]*Context{}
	r.mu.Unlock()
	for _, c := range all {
		if err := c.Cart.Close(ctx); err != nil {
			c.Log.Warn("cart close", zap.Error(err))
		}
	}
}
