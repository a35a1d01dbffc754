package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

var ErrSubmitInProgress = errors.New("checkout with this idempotency key is already being submitted")

// AttemptStore records created payments by idempotency key. Keys are scoped
// per user: the same key from two users names two attempts.
type AttemptStore interface {
	FindByExternalID(ctx context.Context, username, externalID string) (orders.Attempt, error)
	Save(ctx context.Context, a orders.Attempt) (saved orders.Attempt, existed bool, err error)
}

// Locker guards one submission per user and idempotency key across BFF
// replicas.
type Locker interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Submitter makes Composer.Submit idempotent on an external id.
type Submitter struct {
	Store  AttemptStore
	Locker Locker // optional
}

// Submit returns the recorded outcome when externalID was already used
// (existed=true); otherwise it submits c and records the attempt.
func (s *Submitter) Submit(ctx context.Context, c *Composer, externalID, username string) (out Outcome, existed bool, err error) {
	if externalID == "" || s.Store == nil {
		out, err = c.Submit(ctx)
		return out, false, err
	}

	if prev, err := s.Store.FindByExternalID(ctx, username, externalID); err == nil && prev.Username == username {
		return OutcomeOfAttempt(prev), true, nil
	} else if err != nil && !errors.Is(err, orders.ErrAttemptNotFound) {
		return Outcome{}, false, fmt.Errorf("lookup attempt: %w", err)
	}

	lockKey := username + ":" + externalID
	if s.Locker != nil {
		ok, err := s.Locker.Acquire(ctx, lockKey)
		if err != nil {
			return Outcome{}, false, fmt.Errorf("acquire submit lock: %w", err)
		}
		if !ok {
			return Outcome{}, false, ErrSubmitInProgress
		}
		defer func() { _ = s.Locker.Release(context.WithoutCancel(ctx), lockKey) }()
	}

	out, err = c.Submit(ctx)
	if err != nil {
		return Outcome{}, false, err
	}
	a, _ := out.Payment.FirstAction()
	status := out.Payment.Status
	if status == "" {
		status = orders.PaymentPending
	}
	saved, existed, err := s.Store.Save(ctx, orders.Attempt{
		ExternalID:  externalID,
		Username:    username,
		ReferenceID: out.Payment.ReferenceID,
		ChannelCode: out.Payment.ChannelCode,
		Descriptor:  a.Descriptor,
		ActionValue: a.Value,
		Status:      status,
		TotalAmount: c.Summary().Total,
	})
	if err != nil {
		// payment exists upstream; report it, the row is best effort
		return out, false, fmt.Errorf("record attempt %s: %w", out.Payment.ReferenceID, err)
	}
	if existed {
		return OutcomeOfAttempt(saved), true, nil
	}
	return out, false, nil
}

// OutcomeOfAttempt rebuilds the navigation of a recorded attempt.
func OutcomeOfAttempt(a orders.Attempt) Outcome {
	resp := orders.PaymentResponse{
		ReferenceID: a.ReferenceID,
		Status:      a.Status,
		ChannelCode: a.ChannelCode,
	}
	if a.Descriptor != "" {
		resp.Actions = []orders.Action{{Descriptor: a.Descriptor, Value: a.ActionValue}}
	}
	return OutcomeOf(resp)
}
