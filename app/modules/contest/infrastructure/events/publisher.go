// Package contestevents publishes contest lifecycle events over watermill.
package contestevents

import (
	"context"
	"fmt"
	"log/slog"

	contestservice "github.com/Black-And-White-Club/hydro/app/modules/contest/application"
	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	"github.com/Black-And-White-Club/hydro/internal/observability/attr"
	watermillutil "github.com/Black-And-White-Club/hydro/internal/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// StreamName is the JetStream stream holding every contest topic.
const StreamName = "CONTEST"

// StreamSubjects lists the subjects bound to StreamName.
var StreamSubjects = []string{"contest.>"}

// Topics lists every topic this package publishes.
var Topics = []string{
	contestdomain.ContestAttendedV1,
	contestdomain.ContestStatusUpdatedV1,
	contestdomain.ContestRecalculatedV1,
	contestdomain.ContestEditedV1,
}

var _ contestservice.EventPublisher = (*Publisher)(nil)

// Publisher turns contest payloads into watermill messages.
type Publisher struct {
	pub    message.Publisher
	logger *slog.Logger
}

// NewPublisher wraps a watermill publisher.
func NewPublisher(pub message.Publisher, logger *slog.Logger) *Publisher {
	return &Publisher{pub: pub, logger: logger}
}

// Publish encodes payload and publishes it on topic.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) error {
	msg, err := watermillutil.NewMessage(ctx, topic, payload)
	if err != nil {
		return err
	}
	if err := p.pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("contestevents.Publish %s: %w", topic, err)
	}
	p.logger.DebugContext(ctx, "Contest event published",
		attr.ExtractCorrelationID(ctx),
		attr.String("topic", topic),
		attr.String("message_id", msg.UUID),
	)
	return nil
}

// Close closes the underlying publisher.
func (p *Publisher) Close() error { return p.pub.Close() }
