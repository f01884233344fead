package documentservice

import (
	"context"
	"strconv"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
)

func statusID(k documentdomain.StatusKey) string {
	return k.DocKey.String() + "#" + strconv.FormatInt(k.UID, 10)
}

// GetStatus returns the status or nil when it does not exist.
func (s *DocumentService) GetStatus(ctx context.Context, k documentdomain.StatusKey) (*documentdomain.Status, error) {
	return withTelemetry(s, ctx, "GetStatus", statusID(k), func(ctx context.Context) (*documentdomain.Status, error) {
		return nilIfMissing(s.repo.GetStatus(ctx, k))
	})
}

// GetMultiStatus enumerates matching statuses.
func (s *DocumentService) GetMultiStatus(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.StatusFilter, opts documentdomain.FindOptions) ([]*documentdomain.Status, error) {
	return withTelemetry(s, ctx, "GetMultiStatus", domainID, func(ctx context.Context) ([]*documentdomain.Status, error) {
		return s.repo.FindStatuses(ctx, domainID, docType, filter, opts)
	})
}

// UpdateStatus upserts the status and applies update.
func (s *DocumentService) UpdateStatus(ctx context.Context, k documentdomain.StatusKey, update documentdomain.Update) (*documentdomain.Status, error) {
	return withTelemetry(s, ctx, "UpdateStatus", statusID(k), func(ctx context.Context) (*documentdomain.Status, error) {
		if update.Set != nil {
			set, err := documentdomain.Normalize(update.Set)
			if err != nil {
				return nil, err
			}
			update.Set = set
		}
		return s.repo.UpdateStatus(ctx, k, update)
	})
}

// SetStatus upserts the status and merges set.
func (s *DocumentService) SetStatus(ctx context.Context, k documentdomain.StatusKey, set documentdomain.Fields) (*documentdomain.Status, error) {
	return s.UpdateStatus(ctx, k, documentdomain.Update{Set: set})
}

// IncStatus upserts the status and adds n to field.
func (s *DocumentService) IncStatus(ctx context.Context, k documentdomain.StatusKey, field string, n float64) (*documentdomain.Status, error) {
	return s.UpdateStatus(ctx, k, documentdomain.Update{Inc: map[string]float64{field: n}})
}

// CappedIncStatus adds delta to field unless the result would leave [min, max].
// A rejected increment returns an error matching documentdb.ErrCappedIncRejected.
func (s *DocumentService) CappedIncStatus(ctx context.Context, k documentdomain.StatusKey, field string, delta, min, max float64) (*documentdomain.Status, error) {
	return withTelemetry(s, ctx, "CappedIncStatus", statusID(k), func(ctx context.Context) (*documentdomain.Status, error) {
		return s.repo.CappedIncStatus(ctx, k, field, delta, min, max)
	})
}

// RevInitStatus makes sure the status exists and returns it.
func (s *DocumentService) RevInitStatus(ctx context.Context, k documentdomain.StatusKey) (*documentdomain.Status, error) {
	return withTelemetry(s, ctx, "RevInitStatus", statusID(k), func(ctx context.Context) (*documentdomain.Status, error) {
		return s.repo.RevInitStatus(ctx, k)
	})
}

// RevPushStatus appends value to the array at field and bumps rev atomically.
func (s *DocumentService) RevPushStatus(ctx context.Context, k documentdomain.StatusKey, field string, value any) (*documentdomain.Status, error) {
	return withTelemetry(s, ctx, "RevPushStatus", statusID(k), func(ctx context.Context) (*documentdomain.Status, error) {
		nv, err := documentdomain.NormalizeValue(value)
		if err != nil {
			return nil, err
		}
		return s.repo.RevPushStatus(ctx, k, field, nv)
	})
}

// RevSetStatus writes set only if the stored rev still equals rev. A lost race
// is reported through ok and is not an error.
func (s *DocumentService) RevSetStatus(ctx context.Context, k documentdomain.StatusKey, rev int64, set documentdomain.Fields) (*documentdomain.Status, bool, error) {
	type casResult struct {
		status *documentdomain.Status
		ok     bool
	}
	res, err := withTelemetry(s, ctx, "RevSetStatus", statusID(k), func(ctx context.Context) (casResult, error) {
		norm, err := documentdomain.Normalize(set)
		if err != nil {
			return casResult{}, err
		}
		st, ok, err := s.repo.RevSetStatus(ctx, k, rev, norm)
		return casResult{status: st, ok: ok}, err
	})
	return res.status, res.ok, err
}

// DeleteMultiStatus removes every matching status.
func (s *DocumentService) DeleteMultiStatus(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.StatusFilter) (int64, error) {
	return withTelemetry(s, ctx, "DeleteMultiStatus", domainID, func(ctx context.Context) (int64, error) {
		return s.repo.DeleteStatuses(ctx, domainID, docType, filter)
	})
}
