package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func UnmarshalEnvelope(b []byte, out *orders.Envelope) error {
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if out.EventID == "" || out.EventType == "" {
		return fmt.Errorf("decode envelope: missing event_id or event_type")
	}
	return nil
}

// Unwrap memudahkan decode payload spesifik
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}

// NewEnvelope wraps payload with a fresh event id. correlationID is the
// payment reference id and doubles as the partition key.
func NewEnvelope(eventType, producer, correlationID string, payload any) (orders.Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return orders.Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// Publisher is satisfied by *Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header) error
}

// PublishEnvelope builds an envelope and hands it to pub.
func PublishEnvelope(pub Publisher, eventType, producer, correlationID string, payload any) (orders.Envelope, error) {
	env, err := NewEnvelope(eventType, producer, correlationID, payload)
	if err != nil {
		return env, err
	}
	err = pub.Publish(orders.PartitionKey(correlationID), MustMarshal(env),
		kafkago.Header{Key: "event_type", Value: []byte(eventType)})
	return env, err
}
