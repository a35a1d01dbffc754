package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Alert struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Alerts is a bounded FIFO of transient notifications. When full the oldest
// alert is dropped; alerts older than ttl are discarded on read.
type Alerts struct {
	mu    sync.Mutex
	items []Alert
	max   int
	ttl   time.Duration
	now   func() time.Time
}

func NewAlerts(max int, ttl time.Duration) *Alerts {
	if max <= 0 {
		max = 20
	}
	return &Alerts{max: max, ttl: ttl, now: time.Now}
}

func (a *Alerts) Push(level Level, msg string) Alert {
	al := Alert{ID: uuid.NewString(), Level: level, Message: msg, CreatedAt: a.now()}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = append(a.items, al)
	if over := len(a.items) - a.max; over > 0 {
		a.items = append(a.items[:0:0], a.items[over:]...)
	}
	return al
}

func (a *Alerts) Error(msg string) Alert { return a.Push(LevelError, msg) }
func (a *Alerts) Info(msg string) Alert  { return a.Push(LevelInfo, msg) }

// Drain returns the live alerts oldest first and empties the queue.
func (a *Alerts) Drain() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	live := a.live()
	a.items = nil
	return live
}

// Peek returns the live alerts without removing them.
func (a *Alerts) Peek() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live()
}

func (a *Alerts) live() []Alert {
	out := make([]Alert, 0, len(a.items))
	now := a.now()
	for _, al := range a.items {
		if a.ttl > 0 && now.Sub(al.CreatedAt) > a.ttl {
			continue
		}
		out = append(out, al)
	}
	return out
}
