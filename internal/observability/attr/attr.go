// Package attr provides typed slog attribute constructors shared by every module.
package attr

import (
	"context"
	"log/slog"
	"time"
)

type correlationKey struct{}

// WithCorrelationID stores a correlation id on the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation id stored on ctx, or "".
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// ExtractCorrelationID returns the correlation id attribute for ctx.
// An empty attribute is returned when none is set; slog handlers drop it.
func ExtractCorrelationID(ctx context.Context) slog.Attr {
	id := CorrelationID(ctx)
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("correlation_id", id)
}

func String(key, value string) slog.Attr { return slog.String(key, value) }

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

func Int64(key string, value int64) slog.Attr { return slog.Int64(key, value) }

func Float(key string, value float64) slog.Attr { return slog.Float64(key, value) }

func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }

func Any(key string, value any) slog.Attr { return slog.Any(key, value) }

func Time(key string, value time.Time) slog.Attr { return slog.Time(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

// Error returns an "error" attribute. A nil error yields an empty attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// DomainID tags the tenant a log line belongs to.
func DomainID(value string) slog.Attr { return slog.String("domain_id", value) }

// DocID tags the document a log line is about.
func DocID(key, value string) slog.Attr { return slog.String(key, value) }

// UID tags the acting or affected user.
func UID(value int64) slog.Attr { return slog.Int64("uid", value) }
