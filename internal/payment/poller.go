package payment

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"go.uber.org/zap"
)

// ErrWatchAbandoned is returned by Watch when the payment never reached a
// terminal status within the watch limits.
var ErrWatchAbandoned = errors.New("payment still not terminal, watch abandoned")

// ChangeFunc is called whenever a poll observes a new status.
type ChangeFunc func(ctx context.Context, from, to orders.PaymentStatus, tx orders.Transaction)

// Poller re-checks a payment on an interval until the backend reports a
// terminal status. The countdown reaching zero is not terminal; the poller
// keeps going for ExpiryGrace so the backend can report EXPIRED itself.
type Poller struct {
	Fetch       Fetcher
	Interval    time.Duration
	ExpiryGrace time.Duration
	MaxWatch    time.Duration
	OnChange    ChangeFunc
	Log         *zap.Logger

	now func() time.Time
}

func (p *Poller) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

// Watch polls ref and returns the last transaction seen.
func (p *Poller) Watch(ctx context.Context, ref string, seed orders.PaymentStatus) (orders.Transaction, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	tr, err := NewTracker(p.Fetch, ref, WithClock(p.clock), WithLogger(log))
	if err != nil {
		return orders.Transaction{}, err
	}
	interval := p.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	started := p.clock()
	last := seed
	tk := time.NewTicker(interval)
	defer tk.Stop()

	for {
		if _, err := tr.Check(ctx); err == nil {
			tx := tr.Transaction()
			if tx.Status != last {
				if p.OnChange != nil {
					p.OnChange(ctx, last, tx.Status, tx)
				}
				last = tx.Status
			}
			if tx.Status.Terminal() {
				return tx, nil
			}
		} else if ctx.Err() != nil {
			return tr.Transaction(), ctx.Err()
		}

		now := p.clock()
		if p.MaxWatch > 0 && now.Sub(started) >= p.MaxWatch {
			return tr.Transaction(), ErrWatchAbandoned
		}
		if exp := tr.Transaction().ExpiresAt; !exp.IsZero() && now.After(exp.Add(p.ExpiryGrace)) {
			return tr.Transaction(), ErrWatchAbandoned
		}

		select {
		case <-ctx.Done():
			return tr.Transaction(), ctx.Err()
		case <-tk.C:
		}
	}
}
