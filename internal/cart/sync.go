package cart

import (
	"context"
	"sync"
	"time"
)

// SendFunc pushes the settled target quantity of one item to the backend.
type SendFunc func(ctx context.Context, itemID string, target int) error

// DoneFunc observes the outcome of each send.
type DoneFunc func(itemID string, target int, err error)

// Syncer debounces quantity changes per item and keeps at most one request
// in flight per item. A target that settles while a request is in flight
// supersedes any older pending one and is sent as soon as that request ends.
type Syncer struct {
	window  time.Duration
	timeout time.Duration
	send    SendFunc
	done    DoneFunc

	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64
	closed  bool
	waiters []chan struct{} // closed when entries drains to empty
}

type entry struct {
	target   int
	gen      uint64
	timer    *time.Timer
	inflight bool
	dirty    bool // a newer target settled while inflight
}

func NewSyncer(window, timeout time.Duration, send SendFunc, done DoneFunc) *Syncer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if done == nil {
		done = func(string, int, error) {}
	}
	return &Syncer{window: window, timeout: timeout, send: send, done: done, entries: map[string]*entry{}}
}

// Schedule records target as the desired quantity of itemID and (re)starts
// its debounce window. It returns false once the syncer is closed.
func (s *Syncer) Schedule(itemID string, target int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	e, ok := s.entries[itemID]
	if !ok {
		e = &entry{}
		s.entries[itemID] = e
	}
	e.target = target
	s.seq++
	e.gen = s.seq
	if e.timer != nil {
		e.timer.Stop()
	}
	gen := e.gen
	e.timer = time.AfterFunc(s.window, func() { s.fire(itemID, gen) })
	return true
}

// Cancel drops a pending target of itemID. An in-flight request is not
// aborted, but nothing queued behind it will be sent.
func (s *Syncer) Cancel(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[itemID]
	if !ok {
		return
	}
	s.seq++
	e.gen = s.seq
	e.dirty = false
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if !e.inflight {
		s.remove(itemID)
	}
}

// Pending reports whether itemID has a queued or in-flight sync.
func (s *Syncer) Pending(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[itemID]
	return ok
}

// Flush sends every pending target now and waits for all requests to finish.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if len(s.entries) == 0 {
		s.mu.Unlock()
		return nil
	}
	for id, e := range s.entries {
		if e.timer != nil && e.timer.Stop() {
			go s.fire(id, e.gen)
		}
	}
	idle := make(chan struct{})
	s.waiters = append(s.waiters, idle)
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes and rejects further schedules.
func (s *Syncer) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Flush(ctx)
}

func (s *Syncer) fire(itemID string, gen uint64) {
	s.mu.Lock()
	e, ok := s.entries[itemID]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	e.timer = nil
	if e.inflight {
		e.dirty = true
		s.mu.Unlock()
		return
	}
	e.inflight = true
	target := e.target
	s.mu.Unlock()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err := s.send(ctx, itemID, target)
		cancel()
		s.done(itemID, target, err)

		s.mu.Lock()
		if e.dirty {
			e.dirty = false
			target = e.target
			s.mu.Unlock()
			continue
		}
		e.inflight = false
		if e.timer == nil {
			s.remove(itemID)
		}
		s.mu.Unlock()
		return
	}
}

// remove must be called with s.mu held.
func (s *Syncer) remove(itemID string) {
	delete(s.entries, itemID)
	if len(s.entries) == 0 {
		for _, w := range s.waiters {
			close(w)
		}
		s.waiters = nil
	}
}
