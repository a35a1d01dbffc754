// Package payment tracks a created payment until the backend reports a
// terminal status. The backend is authoritative; nothing here moves a
// payment to a new status on its own.
package payment

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"go.uber.org/zap"
)

var ErrInvalidReference = errors.New("invalid payment reference id")

const CheckFailedMessage = "failed to check payment status"

var referencePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidReference reports whether ref is safe to put in a backend path.
func ValidReference(ref string) bool { return referencePattern.MatchString(ref) }

// Phase is the client-observed state of a payment.
type Phase string

const (
	PhaseAwaiting  Phase = "AWAITING"
	PhaseChecking  Phase = "CHECKING"
	PhaseSucceeded Phase = "SUCCEEDED"
	PhaseFailed    Phase = "FAILED"
	PhaseCanceled  Phase = "CANCELED"
	PhaseExpired   Phase = "EXPIRED"
)

func (p Phase) Terminal() bool {
	switch p {
	case PhaseSucceeded, PhaseFailed, PhaseCanceled, PhaseExpired:
		return true
	}
	return false
}

// PhaseOf classifies a backend status. Unknown statuses stay awaiting.
func PhaseOf(s orders.PaymentStatus) Phase {
	switch s {
	case orders.PaymentPending, orders.PaymentRequiresAction:
		return PhaseAwaiting
	case orders.PaymentSucceeded:
		return PhaseSucceeded
	case orders.PaymentFailed:
		return PhaseFailed
	case orders.PaymentCanceled:
		return PhaseCanceled
	case orders.PaymentExpired:
		return PhaseExpired
	}
	return PhaseAwaiting
}

// Action is something the status screen offers the buyer.
type Action string

const (
	ActionCheckStatus     Action = "check_status"
	ActionCopyNumber      Action = "copy_number"
	ActionShowQR          Action = "show_qr"
	ActionOpenPaymentPage Action = "open_payment_page"
)

type Fetcher interface {
	GetTransaction(ctx context.Context, referenceID string) (orders.Transaction, error)
}

// Snapshot is everything a status screen renders.
type Snapshot struct {
	ReferenceID string               `json:"reference_id"`
	Phase       Phase                `json:"phase"`
	Status      orders.PaymentStatus `json:"status"`
	Badge       orders.Badge         `json:"badge"`
	Message     string               `json:"message,omitempty"`
	ChannelCode string               `json:"channel_code"`
	Variant     Variant              `json:"variant"`
	Steps       []string             `json:"steps"`
	PayCode     string               `json:"pay_code,omitempty"` // VA number, QR string or URL
	Total       string               `json:"total"`
	ExpiresAt   time.Time            `json:"expires_at"`
	TimeLeft    time.Duration        `json:"time_left"`
	Actions     []Action             `json:"actions"`
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option { return func(t *Tracker) { t.now = now } }
func WithLogger(l *zap.Logger) Option       { return func(t *Tracker) { t.log = l } }

type Tracker struct {
	fetch Fetcher
	ref   string
	now   func() time.Time
	log   *zap.Logger

	mu      sync.Mutex
	tx      orders.Transaction
	phase   Phase
	settled Phase // phase before the running check
	message string
	loaded  bool
}

func NewTracker(f Fetcher, referenceID string, opts ...Option) (*Tracker, error) {
	if !ValidReference(referenceID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReference, referenceID)
	}
	t := &Tracker{fetch: f, ref: referenceID, now: time.Now, log: zap.NewNop(), phase: PhaseAwaiting, settled: PhaseAwaiting}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Seed installs a transaction obtained elsewhere (e.g. a status cache)
// without a fetch.
func (t *Tracker) Seed(tx orders.Transaction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apply(tx)
}

// Check refetches the transaction. While it runs the phase is CHECKING; a
// failed refetch restores the previous phase and sets CheckFailedMessage.
// Checks stay allowed in every phase, including after expiry.
func (t *Tracker) Check(ctx context.Context) (Snapshot, error) {
	t.mu.Lock()
	if t.phase != PhaseChecking {
		t.settled = t.phase
	}
	t.phase = PhaseChecking
	t.message = ""
	t.mu.Unlock()

	tx, err := t.fetch.GetTransaction(ctx, t.ref)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.phase = t.settled
		t.message = CheckFailedMessage
		t.log.Warn("payment status check failed", zap.String("reference_id", t.ref), zap.Error(err))
		return t.snapshot(), fmt.Errorf("check %s: %w", t.ref, err)
	}
	t.apply(tx)
	return t.snapshot(), nil
}

// apply must be called with t.mu held.
func (t *Tracker) apply(tx orders.Transaction) {
	t.tx = tx
	t.phase = PhaseOf(tx.Status)
	t.settled = t.phase
	t.loaded = true
	if _, ok := orders.PaymentBadge(tx.Status); !ok {
		t.log.Warn("unknown payment status", zap.String("reference_id", t.ref), zap.String("status", string(tx.Status)))
	}
}

func (t *Tracker) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

func (t *Tracker) Transaction() orders.Transaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tx
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

func (t *Tracker) snapshot() Snapshot {
	badge, _ := orders.PaymentBadge(t.tx.Status)
	if t.phase == PhaseChecking {
		badge = orders.Badge{Label: "Checking...", Color: "blue"}
	}
	a, _ := t.tx.FirstAction()
	v := VariantOf(t.tx.ChannelCode)
	return Snapshot{
		ReferenceID: t.ref,
		Phase:       t.phase,
		Status:      t.tx.Status,
		Badge:       badge,
		Message:     t.message,
		ChannelCode: t.tx.ChannelCode,
		Variant:     v,
		Steps:       Instructions(v),
		PayCode:     a.Value,
		Total:       t.tx.Total.String(),
		ExpiresAt:   t.tx.ExpiresAt,
		TimeLeft:    timeLeft(t.tx.ExpiresAt, t.now()),
		Actions:     t.actions(a),
	}
}

func (t *Tracker) actions(first orders.Action) []Action {
	out := []Action{ActionCheckStatus}
	if t.phase.Terminal() || !t.loaded {
		return out
	}
	switch {
	case first.Descriptor == orders.DescriptorVirtualAcct:
		out = append(out, ActionCopyNumber)
	case first.Descriptor == orders.DescriptorWebURL:
		out = append(out, ActionOpenPaymentPage)
	case t.tx.ChannelCode == orders.ChannelQRIS:
		out = append(out, ActionShowQR)
	}
	return out
}

// TimeLeft until expiry, never negative. Cosmetic only.
func (t *Tracker) TimeLeft() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return timeLeft(t.tx.ExpiresAt, t.now())
}

func timeLeft(expires, now time.Time) time.Duration {
	if expires.IsZero() {
		return 0
	}
	if d := expires.Sub(now); d > 0 {
		return d.Truncate(time.Second)
	}
	return 0
}

// Countdown calls fn with the remaining time every tick until ctx ends or
// the countdown reaches zero. It never changes the tracker's phase.
func (t *Tracker) Countdown(ctx context.Context, tick time.Duration, fn func(time.Duration)) {
	if tick <= 0 {
		tick = time.Second
	}
	tk := time.NewTicker(tick)
	defer tk.Stop()
	left := t.TimeLeft()
	fn(left)
	for left > 0 {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			left = t.TimeLeft()
			fn(left)
		}
	}
}
