// Package userservice resolves uids to directory entries for display.
package userservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	userdomain "github.com/Black-And-White-Club/hydro/app/modules/user/domain"
	userdb "github.com/Black-And-White-Club/hydro/app/modules/user/infrastructure/repositories"
	"github.com/Black-And-White-Club/hydro/internal/observability/attr"
	"github.com/Black-And-White-Club/hydro/internal/observability/metrics"
	"github.com/Black-And-White-Club/hydro/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// UserService implements the user directory.
type UserService struct {
	repo    userdb.Repository
	logger  *slog.Logger
	metrics metrics.OperationMetrics
	tracer  trace.Tracer
}

// NewUserService creates a new UserService.
func NewUserService(repo userdb.Repository, logger *slog.Logger, metrics metrics.OperationMetrics, tracer trace.Tracer) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{repo: repo, logger: logger, metrics: metrics, tracer: tracer}
}

// CreateUserRequest is the input of Create.
type CreateUserRequest struct {
	UID    int64  `json:"uid" validate:"gt=1"`
	Uname  string `json:"uname" validate:"required,maxrunes=31"`
	Mail   string `json:"mail" validate:"omitempty,email"`
	Avatar string `json:"avatar"`
	School string `json:"school" validate:"maxrunes=64"`
}

// Create registers a global user.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*userdomain.User, error) {
	return withTelemetry(s, ctx, "Create", req.Uname, func(ctx context.Context) (*userdomain.User, error) {
		if err := validation.Struct(req); err != nil {
			return nil, err
		}
		u := &userdomain.User{UID: req.UID, Uname: req.Uname, Mail: req.Mail, Avatar: req.Avatar, School: req.School}
		if err := s.repo.Create(ctx, u); err != nil {
			if errors.Is(err, userdb.ErrDuplicate) {
				return nil, ErrUserAlreadyExists
			}
			return nil, err
		}
		return u, nil
	})
}

// Get returns the user, or a placeholder when the uid is unknown.
func (s *UserService) Get(ctx context.Context, domainID string, uid int64) (*userdomain.User, error) {
	return withTelemetry(s, ctx, "Get", strconv.FormatInt(uid, 10), func(ctx context.Context) (*userdomain.User, error) {
		u, err := s.repo.Get(ctx, domainID, uid)
		if errors.Is(err, userdb.ErrNotFound) {
			return userdomain.PlaceholderUser(uid), nil
		}
		return u, err
	})
}

// GetList resolves every uid. Unknown uids map to placeholders so a removed
// account never breaks a scoreboard.
func (s *UserService) GetList(ctx context.Context, domainID string, uids []int64) (map[int64]*userdomain.User, error) {
	return withTelemetry(s, ctx, "GetList", domainID, func(ctx context.Context) (map[int64]*userdomain.User, error) {
		users, err := s.repo.GetByUIDs(ctx, domainID, uids)
		if err != nil {
			return nil, err
		}
		out := make(map[int64]*userdomain.User, len(uids))
		for _, u := range users {
			out[u.UID] = u
		}
		for _, uid := range uids {
			if _, ok := out[uid]; !ok {
				out[uid] = userdomain.PlaceholderUser(uid)
			}
		}
		return out, nil
	})
}

// SetDisplayName sets the per-domain display name.
func (s *UserService) SetDisplayName(ctx context.Context, domainID string, uid int64, displayName string) error {
	_, err := withTelemetry(s, ctx, "SetDisplayName", strconv.FormatInt(uid, 10), func(ctx context.Context) (struct{}, error) {
		if len([]rune(displayName)) > 64 {
			return struct{}{}, validation.NewError("displayName", "maxrunes=64")
		}
		return struct{}{}, s.repo.SetDisplayName(ctx, domainID, uid, displayName)
	})
	return err
}

func withTelemetry[T any](s *UserService, ctx context.Context, operationName, identifier string, op func(ctx context.Context) (T, error)) (result T, err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, "UserService")
	}
	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, "UserService", time.Since(startTime))
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered", attr.ExtractCorrelationID(ctx), attr.Error(err))
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, "UserService")
			}
			span.RecordError(err)
		}
	}()

	result, err = op(ctx)
	if err != nil {
		var verr *validation.ValidationError
		if errors.As(err, &verr) || errors.Is(err, ErrUserAlreadyExists) {
			s.logger.WarnContext(ctx, "Operation returned failure result",
				attr.ExtractCorrelationID(ctx),
				attr.String("operation", operationName),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			return result, err
		}
		err = fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(err),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, "UserService")
		}
		span.RecordError(err)
		return result, err
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, "UserService")
	}
	return result, nil
}
