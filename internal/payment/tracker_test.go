package payment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }

// scripted returns the queued results in order, repeating the last one.
type scripted struct {
	mu    sync.Mutex
	steps []step
	calls int
	block chan struct{} // optional, held until closed on every call
}

type step struct {
	tx  orders.Transaction
	err error
}

func (s *scripted) GetTransaction(ctx context.Context, ref string) (orders.Transaction, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	st := s.steps[i]
	st.tx.ReferenceID = ref
	return st.tx, st.err
}

func (s *scripted) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func va(status orders.PaymentStatus, expires time.Time) orders.Transaction {
	return orders.Transaction{
		Status:      status,
		ChannelCode: "BCA",
		Total:       decimal.NewFromInt(77501),
		ExpiresAt:   expires,
		Actions:     []orders.Action{{Descriptor: orders.DescriptorVirtualAcct, Value: "8808123456"}},
	}
}

func TestNewTracker_InvalidReference(t *testing.T) {
	for _, ref := range []string{"", "../etc", "a b", strings.Repeat("x", 65), "ref?x=1"} {
		_, err := NewTracker(&scripted{}, ref)
		assert.ErrorIs(t, err, ErrInvalidReference, ref)
	}
	_, err := NewTracker(&scripted{}, "tx_ABC-123")
	assert.NoError(t, err)
}

func TestPhaseOf(t *testing.T) {
	cases := map[orders.PaymentStatus]Phase{
		orders.PaymentPending:        PhaseAwaiting,
		orders.PaymentRequiresAction: PhaseAwaiting,
		orders.PaymentSucceeded:      PhaseSucceeded,
		orders.PaymentFailed:         PhaseFailed,
		orders.PaymentCanceled:       PhaseCanceled,
		orders.PaymentExpired:        PhaseExpired,
		"WHATEVER":                   PhaseAwaiting,
	}
	for s, want := range cases {
		assert.Equal(t, want, PhaseOf(s), s)
	}
}

func TestCheck_MovesToTerminal(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	f := &scripted{steps: []step{
		{tx: va(orders.PaymentPending, now.Add(time.Hour))},
		{tx: va(orders.PaymentSucceeded, now.Add(time.Hour))},
	}}
	tr, err := NewTracker(f, "ref1", WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	snap, err := tr.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseAwaiting, snap.Phase)
	assert.Equal(t, []Action{ActionCheckStatus, ActionCopyNumber}, snap.Actions)
	assert.Equal(t, "8808123456", snap.PayCode)
	assert.Equal(t, VariantBCA, snap.Variant)
	assert.Equal(t, time.Hour, snap.TimeLeft)

	snap, err = tr.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseSucceeded, snap.Phase)
	assert.Equal(t, "Paid", snap.Badge.Label)
	assert.Equal(t, []Action{ActionCheckStatus}, snap.Actions)
}

func TestCheck_FailureRestoresPreviousPhase(t *testing.T) {
	f := &scripted{steps: []step{
		{tx: va(orders.PaymentPending, time.Time{})},
		{err: errors.New("503")},
	}}
	tr, err := NewTracker(f, "ref1")
	require.NoError(t, err)
	_, err = tr.Check(context.Background())
	require.NoError(t, err)

	snap, err := tr.Check(context.Background())
	require.Error(t, err)
	assert.Equal(t, PhaseAwaiting, snap.Phase)
	assert.Equal(t, CheckFailedMessage, snap.Message)
	assert.Equal(t, orders.PaymentPending, snap.Status)
}

func TestCheck_ShowsCheckingWhileInFlight(t *testing.T) {
	f := &scripted{steps: []step{{tx: va(orders.PaymentPending, time.Time{})}}, block: make(chan struct{})}
	tr, err := NewTracker(f, "ref1")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = tr.Check(context.Background())
	}()
	require.Eventually(t, func() bool { return tr.Phase() == PhaseChecking }, time.Second, time.Millisecond)
	assert.Equal(t, "Checking...", tr.Snapshot().Badge.Label)
	close(f.block)
	<-done
	assert.Equal(t, PhaseAwaiting, tr.Phase())
}

func TestCountdownZero_DoesNotExpire(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	tr, err := NewTracker(&scripted{}, "ref1", WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	tr.Seed(va(orders.PaymentPending, now.Add(-time.Minute)))

	var got []time.Duration
	tr.Countdown(context.Background(), time.Millisecond, func(d time.Duration) { got = append(got, d) })
	assert.Equal(t, []time.Duration{0}, got)
	assert.Equal(t, PhaseAwaiting, tr.Phase())
	assert.Contains(t, tr.Snapshot().Actions, ActionCheckStatus)
}

func TestActions_ByChannel(t *testing.T) {
	tr, _ := NewTracker(&scripted{}, "ref1")
	tr.Seed(orders.Transaction{Status: orders.PaymentPending, ChannelCode: orders.ChannelQRIS,
		Actions: []orders.Action{{Descriptor: orders.DescriptorQRString, Value: "000201"}}})
	assert.Equal(t, []Action{ActionCheckStatus, ActionShowQR}, tr.Snapshot().Actions)
	assert.Equal(t, VariantQRIS, tr.Snapshot().Variant)

	tr.Seed(orders.Transaction{Status: orders.PaymentRequiresAction, ChannelCode: "OVO",
		Actions: []orders.Action{{Descriptor: orders.DescriptorWebURL, Value: "https://pay.example/x"}}})
	assert.Equal(t, []Action{ActionCheckStatus, ActionOpenPaymentPage}, tr.Snapshot().Actions)
	assert.Equal(t, VariantOther, tr.Snapshot().Variant)
}

func TestUnknownStatus_GrayBadge(t *testing.T) {
	tr, _ := NewTracker(&scripted{}, "ref1")
	tr.Seed(orders.Transaction{Status: "SETTLING"})
	snap := tr.Snapshot()
	assert.Equal(t, PhaseAwaiting, snap.Phase)
	assert.Equal(t, "gray", snap.Badge.Color)
}

func TestInstructions_Fallback(t *testing.T) {
	assert.NotEmpty(t, Instructions(VariantBNI))
	assert.Equal(t, Instructions(VariantOther), Instructions("nope"))
}

func TestInstructions_CallerCannotEditTable(t *testing.T) {
	steps := Instructions(VariantBCA)
	want := steps[0]
	steps[0] = "tampered"

	assert.Equal(t, want, Instructions(VariantBCA)[0])
	assert.Equal(t, len(instructions[VariantBCA]), len(Instructions(VariantBCA)))
	assert.Equal(t, VariantOther, VariantOf("PERMATA"))
	assert.Equal(t, VariantVA, VariantOf("MANDIRI"))
}
