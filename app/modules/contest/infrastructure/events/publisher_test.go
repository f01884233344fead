package contestevents

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	"github.com/Black-And-White-Club/hydro/internal/observability/attr"
	watermillutil "github.com/Black-And-White-Club/hydro/internal/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversJSONPayload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pubsub := watermillutil.NewGoChannel(logger)
	t.Cleanup(func() { _ = pubsub.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	messages, err := pubsub.Subscribe(ctx, contestdomain.ContestAttendedV1)
	require.NoError(t, err)

	p := NewPublisher(pubsub, logger)
	want := contestdomain.ContestAttendedPayload{
		ContestRef: contestdomain.ContestRef{DomainID: "system", DocType: documentdomain.TypeContest, ContestID: "65f0"},
		UID:        42,
		AttendedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(attr.WithCorrelationID(ctx, "corr-1"), contestdomain.ContestAttendedV1, want))

	select {
	case msg := <-messages:
		msg.Ack()
		var got contestdomain.ContestAttendedPayload
		require.NoError(t, watermillutil.Decode(msg, &got))
		assert.Equal(t, want.ContestRef, got.ContestRef)
		assert.Equal(t, want.UID, got.UID)
		assert.True(t, want.AttendedAt.Equal(got.AttendedAt))
		assert.Equal(t, "corr-1", msg.Metadata.Get(watermillutil.MetadataCorrelationID))
		assert.Equal(t, contestdomain.ContestAttendedV1, msg.Metadata.Get(watermillutil.MetadataTopic))
		assert.NotEmpty(t, msg.UUID)
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestPublishRejectsUnencodablePayload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pubsub := watermillutil.NewGoChannel(logger)
	t.Cleanup(func() { _ = pubsub.Close() })

	err := NewPublisher(pubsub, logger).Publish(context.Background(), contestdomain.ContestEditedV1, func() {})
	require.Error(t, err)
}
