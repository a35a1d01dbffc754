package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler harus return nil hanya jika proses sukses & boleh commit offset.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
	log     *zap.Logger
	offsets *offsetTracker

	commitMu  sync.Mutex
	committed map[int]int64 // partition -> highest committed offset
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{
		r:         r,
		workers:   workers,
		log:       log.With(zap.String("topic", topic), zap.String("group", group)),
		offsets:   newOffsetTracker(),
		committed: map[int]int64{},
	}
}

// Start blocks until ctx is done or the reader fails. Workers finish their
// current message before the reader is closed. Messages of one partition run
// concurrently, but the committed offset only moves past a message once it
// and all earlier ones of that partition have succeeded.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	jobs := make(chan kafka.Message, c.workers*4)
	var failures sync.Map // partition -> last failure time, buat backoff ringan

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for m := range jobs {
				if err := h(ctx, m); err != nil {
					c.log.Warn("handler failed, partition commit held back",
						zap.Int("worker", id), zap.Int("partition", m.Partition),
						zap.Int64("offset", m.Offset), zap.Int("held", c.offsets.held(m.Partition)), zap.Error(err))
					failures.Store(m.Partition, time.Now())
					continue
				}
				// commit hanya offset kontigu tertinggi
				if next, ok := c.offsets.succeeded(m); ok {
					c.commit(ctx, next)
				}
			}
		}(i)
	}
	defer func() {
		close(jobs)
		wg.Wait()
		if err := c.r.Close(); err != nil {
			c.log.Warn("kafka reader close", zap.Error(err))
		}
	}()

	// dispatcher loop
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			// kecilkan noise saat shutdown
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		c.offsets.fetched(m)
		if t, ok := failures.LoadAndDelete(m.Partition); ok && time.Since(t.(time.Time)) < time.Second {
			time.Sleep(200 * time.Millisecond) // backoff ringan
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

// commit keeps the committed offset of each partition monotonic even when
// two workers release commits for the same partition out of order.
func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()
	if prev, ok := c.committed[m.Partition]; ok && m.Offset <= prev {
		return
	}
	if err := c.r.CommitMessages(ctx, m); err != nil {
		if ctx.Err() == nil {
			c.log.Warn("commit failed", zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset), zap.Error(err))
		}
		return
	}
	c.committed[m.Partition] = m.Offset
}
