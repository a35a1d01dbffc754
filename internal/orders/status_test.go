package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentBadge_CoversEveryStatus(t *testing.T) {
	for _, s := range PaymentStatuses {
		b, ok := PaymentBadge(s)
		assert.True(t, ok, "status %s", s)
		assert.NotEqual(t, "Unknown", b.Label)
	}
	b, ok := PaymentBadge("SETTLING")
	assert.False(t, ok)
	assert.Equal(t, "Unknown", b.Label)

	paid, _ := PaymentBadge(PaymentSucceeded)
	assert.Equal(t, "Paid", paid.Label)
}

func TestOrderBadge_CoversEveryStatus(t *testing.T) {
	for _, s := range OrderStatuses {
		_, ok := OrderBadge(s)
		assert.True(t, ok, "status %s", s)
		_, known := validNext[s]
		assert.True(t, known, "status %s missing from transition table", s)
	}
}

func TestPaymentStatus_Terminal(t *testing.T) {
	assert.False(t, PaymentPending.Terminal())
	assert.False(t, PaymentRequiresAction.Terminal())
	assert.True(t, PaymentSucceeded.Terminal())
	assert.True(t, PaymentExpired.Terminal())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(OrderPendingPayment, OrderPaid))
	assert.True(t, CanTransition(OrderShipped, OrderDelivered))
	assert.False(t, CanTransition(OrderCompleted, OrderRefunded))
	assert.False(t, CanTransition(OrderPendingPayment, OrderShipped))
}
