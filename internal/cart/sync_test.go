package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu       sync.Mutex
	sent     []int
	inflight int
	maxSeen  int
	gate     chan struct{}
}

func (r *recorder) send(ctx context.Context, id string, target int) error {
	r.mu.Lock()
	r.inflight++
	if r.inflight > r.maxSeen {
		r.maxSeen = r.inflight
	}
	r.sent = append(r.sent, target)
	gate := r.gate
	r.mu.Unlock()

	if gate != nil {
		<-gate
	}

	r.mu.Lock()
	r.inflight--
	r.mu.Unlock()
	return nil
}

func (r *recorder) snapshot() ([]int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.sent...), r.maxSeen
}

func TestSyncer_CoalescesWithinWindow(t *testing.T) {
	rec := &recorder{}
	s := NewSyncer(30*time.Millisecond, time.Second, rec.send, nil)

	for q := 2; q <= 6; q++ {
		require.True(t, s.Schedule("a", q))
	}
	assert.Eventually(t, func() bool { return !s.Pending("a") }, time.Second, 5*time.Millisecond)

	sent, _ := rec.snapshot()
	assert.Equal(t, []int{6}, sent)
	require.NoError(t, s.Close(context.Background()))
	assert.False(t, s.Schedule("a", 7), "closed syncer rejects schedules")
}

func TestSyncer_SingleFlightSupersedes(t *testing.T) {
	rec := &recorder{gate: make(chan struct{})}
	s := NewSyncer(10*time.Millisecond, time.Second, rec.send, nil)

	s.Schedule("a", 2)
	assert.Eventually(t, func() bool { sent, _ := rec.snapshot(); return len(sent) == 1 }, time.Second, 2*time.Millisecond)

	// two more bursts settle while the first request is still in flight
	s.Schedule("a", 3)
	time.Sleep(30 * time.Millisecond)
	s.Schedule("a", 4)
	time.Sleep(30 * time.Millisecond)

	close(rec.gate)
	require.NoError(t, s.Flush(context.Background()))

	sent, maxSeen := rec.snapshot()
	assert.Equal(t, []int{2, 4}, sent, "latest target supersedes the queued one")
	assert.Equal(t, 1, maxSeen, "never more than one request in flight per item")
}

func TestSyncer_IndependentItems(t *testing.T) {
	rec := &recorder{}
	s := NewSyncer(time.Hour, time.Second, rec.send, nil)

	s.Schedule("a", 2)
	s.Schedule("b", 5)
	require.NoError(t, s.Flush(context.Background()))

	sent, _ := rec.snapshot()
	assert.ElementsMatch(t, []int{2, 5}, sent)
	assert.False(t, s.Pending("a"))
	assert.False(t, s.Pending("b"))
}

func TestSyncer_CancelDropsPending(t *testing.T) {
	rec := &recorder{}
	var done []error
	s := NewSyncer(time.Hour, time.Second, rec.send, func(_ string, _ int, err error) { done = append(done, err) })

	s.Schedule("a", 3)
	s.Cancel("a")
	assert.False(t, s.Pending("a"))
	require.NoError(t, s.Flush(context.Background()))

	sent, _ := rec.snapshot()
	assert.Empty(t, sent)
	assert.Empty(t, done)
}

func TestSyncer_FlushHonoursContext(t *testing.T) {
	rec := &recorder{gate: make(chan struct{})}
	s := NewSyncer(time.Millisecond, time.Second, rec.send, nil)
	s.Schedule("a", 2)
	assert.Eventually(t, func() bool { sent, _ := rec.snapshot(); return len(sent) == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Flush(ctx), context.DeadlineExceeded)

	close(rec.gate)
	require.NoError(t, s.Flush(context.Background()))
}
