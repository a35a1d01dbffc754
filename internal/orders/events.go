package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventPaymentCreated       = "PaymentCreated"
	EventPaymentStatusChanged = "PaymentStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g., "storefront-bff"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // reference_id
	Payload       json.RawMessage `json:"payload"`
}

type PaymentCreatedPayload struct {
	ReferenceID string          `json:"reference_id"`
	ExternalID  string          `json:"external_id"`
	Username    string          `json:"username"`
	ChannelCode string          `json:"channel_code"`
	Descriptor  string          `json:"descriptor,omitempty"`
	Total       decimal.Decimal `json:"total"`
}

type PaymentStatusChangedPayload struct {
	ReferenceID string        `json:"reference_id"`
	From        PaymentStatus `json:"from,omitempty"`
	To          PaymentStatus `json:"to"`
	Terminal    bool          `json:"terminal"`
}
