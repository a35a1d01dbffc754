package kafka

import (
	"sync"

	"github.com/segmentio/kafka-go"
)

// offsetTracker releases a message for commit only once it and every message
// fetched before it on the same partition have succeeded. A failed or still
// running message holds back the commit of everything behind it, so after a
// restart the group resumes at that message.
type offsetTracker struct {
	mu    sync.Mutex
	queue map[int][]*slot // per partition, in fetch order
}

type slot struct {
	m    kafka.Message
	done bool
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{queue: map[int][]*slot{}}
}

// fetched registers m; call it before m is handed to a worker.
func (t *offsetTracker) fetched(m kafka.Message) {
	t.mu.Lock()
	t.queue[m.Partition] = append(t.queue[m.Partition], &slot{m: m})
	t.mu.Unlock()
}

// succeeded marks m done and returns the highest message of its partition
// that is now safe to commit, if any.
func (t *offsetTracker) succeeded(m kafka.Message) (kafka.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	q := t.queue[m.Partition]
	for _, s := range q {
		if s.m.Offset == m.Offset && !s.done {
			s.done = true
			break
		}
	}
	var last *slot
	for len(q) > 0 && q[0].done {
		last, q = q[0], q[1:]
	}
	if len(q) == 0 {
		delete(t.queue, m.Partition)
	} else {
		t.queue[m.Partition] = q
	}
	if last == nil {
		return kafka.Message{}, false
	}
	return last.m, true
}

// held reports how many fetched messages of partition wait for commit.
func (t *offsetTracker) held(partition int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue[partition])
}
