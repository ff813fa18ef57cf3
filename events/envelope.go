package events

import (
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/rayhaanfarooq/squire/pkg/jsonx"
	"github.com/rayhaanfarooq/squire/pkg/uuidx"
)

var envelopeJSON = []byte(`{}`)

// Envelope is one transport-level message: a topic, a dynamic JSON payload,
// and enough metadata to deduplicate and order deliveries.
type Envelope struct {
	ID         string          `json:"id"`
	Topic      string          `json:"topic"`
	Payload    gjson.Result    `json:"payload"`
	EnqueuedAt strfmt.DateTime `json:"enqueued_at"`
}

// New creates an envelope for topic carrying payload, stamped with a fresh
// version 7 identifier and the current time.
func New(topic string, payload gjson.Result) Envelope {
	return Envelope{
		ID:         uuidx.NewString(),
		Topic:      topic,
		Payload:    payload,
		EnqueuedAt: strfmt.DateTime(time.Now().UTC()),
	}
}

// NewValue creates an envelope whose payload is the JSON form of val. It
// fails when val does not marshal.
func NewValue(topic string, val any) (Envelope, error) {
	payload, err := jsonx.ToResult(val)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode payload for %s: %w", topic, err)
	}
	return New(topic, payload), nil
}

// MarshalJSON implements custom JSON marshaling for Envelope
func (e Envelope) MarshalJSON() ([]byte, error) {
	result := envelopeJSON

	var err error
	result, err = sjson.SetBytes(result, "id", e.ID)
	if err != nil {
		return nil, err
	}

	result, err = sjson.SetBytes(result, "topic", e.Topic)
	if err != nil {
		return nil, err
	}

	payload := e.Payload.Raw
	if payload == "" {
		payload = "null"
	}
	result, err = sjson.SetRawBytes(result, "payload", []byte(payload))
	if err != nil {
		return nil, err
	}

	result, err = sjson.SetBytes(result, "enqueued_at", e.EnqueuedAt.String())
	return result, err
}

// UnmarshalJSON implements custom JSON unmarshaling for Envelope
func (e *Envelope) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}

	id := gjson.GetBytes(data, "id")
	if !id.Exists() {
		return fmt.Errorf("missing required field 'id'")
	}
	e.ID = id.String()

	topic := gjson.GetBytes(data, "topic")
	if !topic.Exists() {
		return fmt.Errorf("missing required field 'topic'")
	}
	e.Topic = topic.String()

	payload := gjson.GetBytes(data, "payload")
	if !payload.Exists() {
		return fmt.Errorf("missing required field 'payload'")
	}
	e.Payload = payload

	ts := gjson.GetBytes(data, "enqueued_at")
	if !ts.Exists() {
		return fmt.Errorf("missing required field 'enqueued_at'")
	}
	if err := e.EnqueuedAt.UnmarshalText([]byte(ts.String())); err != nil {
		return fmt.Errorf("invalid enqueued_at: %w", err)
	}

	return nil
}
