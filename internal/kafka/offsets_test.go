package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(partition int, offset int64) kafka.Message {
	return kafka.Message{Partition: partition, Offset: offset}
}

func TestOffsetTracker_LaterSuccessWaitsForEarlier(t *testing.T) {
	tr := newOffsetTracker()
	tr.fetched(msg(0, 10))
	tr.fetched(msg(0, 11))

	// 11 finishes first while 10 is still being watched
	_, ok := tr.succeeded(msg(0, 11))
	assert.False(t, ok, "must not commit past offset 10")
	assert.Equal(t, 2, tr.held(0))

	next, ok := tr.succeeded(msg(0, 10))
	require.True(t, ok)
	assert.Equal(t, int64(11), next.Offset)
	assert.Zero(t, tr.held(0))
}

func TestOffsetTracker_FailureHoldsPartition(t *testing.T) {
	tr := newOffsetTracker()
	tr.fetched(msg(0, 10))
	tr.fetched(msg(0, 11))
	tr.fetched(msg(0, 12))

	// 10 failed (never succeeded); nothing after it may be committed
	_, ok := tr.succeeded(msg(0, 11))
	assert.False(t, ok)
	_, ok = tr.succeeded(msg(0, 12))
	assert.False(t, ok)
	assert.Equal(t, 3, tr.held(0))
}

func TestOffsetTracker_PartitionsIndependentAndGapsAllowed(t *testing.T) {
	tr := newOffsetTracker()
	tr.fetched(msg(0, 10))
	tr.fetched(msg(1, 3))
	tr.fetched(msg(1, 7)) // compacted gap

	next, ok := tr.succeeded(msg(1, 3))
	require.True(t, ok)
	assert.Equal(t, int64(3), next.Offset)

	next, ok = tr.succeeded(msg(1, 7))
	require.True(t, ok)
	assert.Equal(t, int64(7), next.Offset)
	assert.Equal(t, 1, tr.held(0))
}

func TestOffsetTracker_RedeliveredOffset(t *testing.T) {
	tr := newOffsetTracker()
	tr.fetched(msg(0, 5))
	tr.fetched(msg(0, 5)) // fetched again after a rebalance

	next, ok := tr.succeeded(msg(0, 5))
	require.True(t, ok)
	assert.Equal(t, int64(5), next.Offset)
	assert.Equal(t, 1, tr.held(0))

	_, ok = tr.succeeded(msg(0, 5))
	assert.True(t, ok)
	assert.Zero(t, tr.held(0))
}
