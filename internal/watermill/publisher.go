// Package watermillutil builds the watermill publishers used for contest events.
package watermillutil

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NewPublisher creates a NATS JetStream publisher. The stream holding the
// topics must already exist; see EnsureStream.
func NewPublisher(natsURL string, logger *slog.Logger, opts ...nc.Option) (message.Publisher, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	natsOpts := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.MaxReconnects(-1),
		nc.ReconnectWait(2 * time.Second),
	}
	natsOpts = append(natsOpts, opts...)

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:               natsURL,
			NatsOptions:       natsOpts,
			Marshaler:         &nats.NATSMarshaler{},
			SubjectCalculator: nats.DefaultSubjectCalculator,
			JetStream: nats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false,
			},
		},
		wmLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}
	return publisher, nil
}

// EnsureStream creates or updates the JetStream stream that stores subjects.
// Topic names contain dots, which stream names may not, so one stream covers
// a whole topic family instead of watermill provisioning one per topic.
func EnsureStream(ctx context.Context, natsURL, name string, subjects []string) error {
	conn, err := nc.Connect(natsURL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer conn.Close()

	js, err := jetstream.New(conn)
	if err != nil {
		return fmt.Errorf("failed to initialize JetStream: %w", err)
	}
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: subjects,
		MaxAge:   7 * 24 * time.Hour,
	}); err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", name, err)
	}
	return nil
}
