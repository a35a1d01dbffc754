package kafka

import (
	"testing"

	"github.com/ariefcatur/go-storefront/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	key, value []byte
	headers    []kafkago.Header
}

func (c *capture) Publish(key, value []byte, headers ...kafkago.Header) error {
	c.key, c.value, c.headers = key, value, headers
	return nil
}

func TestPublishEnvelope_RoundTrip(t *testing.T) {
	var c capture
	sent, err := PublishEnvelope(&c, orders.EventPaymentStatusChanged, "payment-tracker", "tx_1",
		orders.PaymentStatusChangedPayload{ReferenceID: "tx_1", From: orders.PaymentPending, To: orders.PaymentSucceeded, Terminal: true})
	require.NoError(t, err)
	assert.Equal(t, []byte("tx_1"), c.key)
	assert.Equal(t, "event_type", c.headers[0].Key)

	var env orders.Envelope
	require.NoError(t, UnmarshalEnvelope(c.value, &env))
	assert.Equal(t, sent.EventID, env.EventID)
	assert.Equal(t, "tx_1", env.CorrelationID)

	p, err := UnwrapPayload[orders.PaymentStatusChangedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentSucceeded, p.To)
	assert.True(t, p.Terminal)
}

func TestUnmarshalEnvelope_Rejects(t *testing.T) {
	var env orders.Envelope
	assert.Error(t, UnmarshalEnvelope([]byte(`not json`), &env))
	assert.Error(t, UnmarshalEnvelope([]byte(`{"event_type":"PaymentCreated"}`), &env))
}
