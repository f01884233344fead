package watermillutil

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Black-And-White-Club/hydro/internal/observability/attr"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Metadata keys set on every message.
const (
	MetadataCorrelationID = "correlation_id"
	MetadataTopic         = "topic"
)

// NewMessage JSON-encodes payload into a message with a fresh id.
func NewMessage(ctx context.Context, topic string, payload any) (*message.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}
	msg := message.NewMessage(uuid.NewString(), body)
	msg.Metadata.Set(MetadataTopic, topic)
	if id := attr.CorrelationID(ctx); id != "" {
		msg.Metadata.Set(MetadataCorrelationID, id)
	}
	msg.SetContext(ctx)
	return msg, nil
}

// Decode JSON-decodes a message payload into v.
func Decode(msg *message.Message, v any) error {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal message %s: %w", msg.UUID, err)
	}
	return nil
}
