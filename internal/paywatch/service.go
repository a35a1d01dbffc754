// Package paywatch follows freshly created payments until the backend
// settles them, so status screens and the attempts table stay current even
// when nobody presses "check again".
package paywatch

import (
	"context"
	"errors"
	"time"

	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/payment"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Deduper is satisfied by *redisx.Dedup.
type Deduper interface {
	MarkOnce(ctx context.Context, eventID string) (bool, error)
	Unmark(ctx context.Context, eventID string) error
}

// StatusWriter is satisfied by *orders.AttemptRepo.
type StatusWriter interface {
	UpdateStatus(ctx context.Context, referenceID string, status orders.PaymentStatus) (bool, error)
}

// StatusCache is satisfied by *redisx.StatusCache.
type StatusCache interface {
	Put(ctx context.Context, owner string, tx orders.Transaction) error
}

type Service struct {
	Fetch       payment.Fetcher // backend client with the service token
	Dedup       Deduper
	Attempts    StatusWriter
	Cache       StatusCache
	Events      kafkax.Publisher // payment.status.changed
	Interval    time.Duration
	ExpiryGrace time.Duration
	MaxWatch    time.Duration
	ServiceName string
	Log         *zap.Logger
}

func (s *Service) log() *zap.Logger { return logx.OrNop(s.Log) }

// HandlePaymentCreated: dipasang sebagai handler consumer. Blocks until the
// payment is settled or the watch gives up.
func (s *Service) HandlePaymentCreated(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		s.log().Warn("drop undecodable message", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil // poison message, commit
	}
	if env.EventType != orders.EventPaymentCreated {
		return nil
	} // ignore

	// 2) dedup via Redis (pakai event_id), atomik lewat SETNX
	if s.Dedup != nil {
		first, err := s.Dedup.MarkOnce(ctx, env.EventID)
		if err != nil {
			return err
		}
		if !first {
			return nil
		}
	}

	// 3) decode payload
	p, err := kafkax.UnwrapPayload[orders.PaymentCreatedPayload](env.Payload)
	if err != nil {
		s.log().Warn("drop payment event", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	log := s.log().With(zap.String("reference_id", p.ReferenceID), zap.String("event_id", env.EventID))

	// 4) poll sampai terminal
	poller := &payment.Poller{
		Fetch:       s.Fetch,
		Interval:    s.Interval,
		ExpiryGrace: s.ExpiryGrace,
		MaxWatch:    s.MaxWatch,
		Log:         log,
		OnChange: func(ctx context.Context, from, to orders.PaymentStatus, tx orders.Transaction) {
			s.changed(ctx, log, p.Username, env.TraceID, from, to, tx)
		},
	}
	tx, err := poller.Watch(ctx, p.ReferenceID, orders.PaymentPending)
	switch {
	case err == nil:
		log.Info("payment settled", zap.String("status", string(tx.Status)))
		return nil
	case errors.Is(err, payment.ErrWatchAbandoned):
		log.Warn("payment watch abandoned", zap.String("status", string(tx.Status)))
		return nil
	case errors.Is(err, payment.ErrInvalidReference):
		log.Warn("drop payment event", zap.Error(err))
		return nil
	}

	// shutdown: lepas marker supaya redelivery diproses lagi
	if s.Dedup != nil {
		if uerr := s.Dedup.Unmark(context.WithoutCancel(ctx), env.EventID); uerr != nil {
			log.Warn("unmark event", zap.Error(uerr))
		}
	}
	return err
}

func (s *Service) changed(ctx context.Context, log *zap.Logger, owner, trace string, from, to orders.PaymentStatus, tx orders.Transaction) {
	log = log.With(zap.String("from", string(from)), zap.String("to", string(to)))
	if s.Cache != nil {
		if err := s.Cache.Put(ctx, owner, tx); err != nil {
			log.Warn("cache payment status", zap.Error(err))
		}
	}
	if s.Attempts != nil {
		if _, err := s.Attempts.UpdateStatus(ctx, tx.ReferenceID, to); err != nil {
			log.Warn("update attempt status", zap.Error(err))
		}
	}
	if s.Events != nil {
		env, err := kafkax.NewEnvelope(orders.EventPaymentStatusChanged, s.ServiceName, tx.ReferenceID,
			orders.PaymentStatusChangedPayload{ReferenceID: tx.ReferenceID, From: from, To: to, Terminal: to.Terminal()})
		if err != nil {
			log.Error("build status event", zap.Error(err))
			return
		}
		env.TraceID = trace
		err = s.Events.Publish(orders.PartitionKey(tx.ReferenceID), kafkax.MustMarshal(env),
			kafkago.Header{Key: "event_type", Value: []byte(orders.EventPaymentStatusChanged)})
		if err != nil {
			log.Error("publish status event", zap.Error(err))
			return
		}
	}
	log.Info("payment status changed")
}
