package documentmongo

import (
	"context"
	"errors"
	"fmt"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	documentdb "github.com/Black-And-White-Club/hydro/app/modules/document/infrastructure/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) findOneAndUpdateStatus(ctx context.Context, filter, update bson.M, opts *options.FindOneAndUpdateOptions) (*documentdomain.Status, error) {
	var m bson.M
	if err := s.statuses.FindOneAndUpdate(ctx, filter, update, opts).Decode(&m); err != nil {
		return nil, err
	}
	return decodeStatus(m)
}

// GetStatus loads one status.
func (s *Store) GetStatus(ctx context.Context, key documentdomain.StatusKey) (*documentdomain.Status, error) {
	var m bson.M
	if err := s.statuses.FindOne(ctx, statusKeyFilter(key)).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, documentdb.ErrNotFound
		}
		return nil, fmt.Errorf("documentmongo.GetStatus: %w", err)
	}
	return decodeStatus(m)
}

// FindStatuses enumerates statuses matching filter.
func (s *Store) FindStatuses(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.StatusFilter, opts documentdomain.FindOptions) ([]*documentdomain.Status, error) {
	cur, err := s.statuses.Find(ctx, statusFilter(domainID, docType, filter), findOptions(opts, "_id"))
	if err != nil {
		return nil, fmt.Errorf("documentmongo.FindStatuses: %w", err)
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("documentmongo.FindStatuses: %w", err)
	}
	out := make([]*documentdomain.Status, 0, len(raw))
	for _, m := range raw {
		st, err := decodeStatus(m)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// UpdateStatus upserts the status and applies update.
func (s *Store) UpdateStatus(ctx context.Context, key documentdomain.StatusKey, update documentdomain.Update) (*documentdomain.Status, error) {
	u := toBSONUpdate(update)
	u["$setOnInsert"] = bson.M{"rev": int64(0)}
	st, err := s.findOneAndUpdateStatus(ctx, statusKeyFilter(key), u, afterUpsert)
	if err != nil {
		return nil, fmt.Errorf("documentmongo.UpdateStatus: %w", err)
	}
	return st, nil
}

// CappedIncStatus relies on the unique status index: when the bound check
// excludes the existing record, the upsert collides with it and is rejected.
func (s *Store) CappedIncStatus(ctx context.Context, key documentdomain.StatusKey, field string, delta, min, max float64) (*documentdomain.Status, error) {
	filter := statusKeyFilter(key)
	if delta > 0 {
		filter[field] = bson.M{"$not": bson.M{"$gt": max - delta}}
	} else {
		filter[field] = bson.M{"$not": bson.M{"$lt": min - delta}}
	}
	opts := afterUpdate
	if delta >= min && delta <= max {
		opts = afterUpsert
	}
	update := bson.M{
		"$inc":         bson.M{field: delta},
		"$setOnInsert": bson.M{"rev": int64(0)},
	}
	st, err := s.findOneAndUpdateStatus(ctx, filter, update, opts)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || mongo.IsDuplicateKeyError(err) {
			return nil, documentdb.ErrCappedIncRejected
		}
		return nil, fmt.Errorf("documentmongo.CappedIncStatus: %w", err)
	}
	return st, nil
}

// RevInitStatus creates the status with rev 0 when absent.
func (s *Store) RevInitStatus(ctx context.Context, key documentdomain.StatusKey) (*documentdomain.Status, error) {
	st, err := s.findOneAndUpdateStatus(ctx, statusKeyFilter(key), bson.M{"$setOnInsert": bson.M{"rev": int64(0)}}, afterUpsert)
	if err != nil {
		return nil, fmt.Errorf("documentmongo.RevInitStatus: %w", err)
	}
	return st, nil
}

// RevPushStatus appends value and bumps rev in one update.
func (s *Store) RevPushStatus(ctx context.Context, key documentdomain.StatusKey, field string, value any) (*documentdomain.Status, error) {
	st, err := s.findOneAndUpdateStatus(ctx, statusKeyFilter(key), bson.M{
		"$push": bson.M{field: value},
		"$inc":  bson.M{"rev": int64(1)},
	}, afterUpsert)
	if err != nil {
		return nil, fmt.Errorf("documentmongo.RevPushStatus: %w", err)
	}
	return st, nil
}

// RevSetStatus matches on rev and reports a miss as ok == false.
func (s *Store) RevSetStatus(ctx context.Context, key documentdomain.StatusKey, expectedRev int64, set documentdomain.Fields) (*documentdomain.Status, bool, error) {
	filter := statusKeyFilter(key)
	filter["rev"] = expectedRev
	fields := bson.M{}
	for k, v := range set {
		if documentdomain.ReservedStatusFields[k] {
			continue
		}
		fields[k] = v
	}
	update := bson.M{"$inc": bson.M{"rev": int64(1)}}
	if len(fields) > 0 {
		update["$set"] = fields
	}
	st, err := s.findOneAndUpdateStatus(ctx, filter, update, afterUpdate)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("documentmongo.RevSetStatus: %w", err)
	}
	return st, true, nil
}

// DeleteStatuses removes every matching status.
func (s *Store) DeleteStatuses(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.StatusFilter) (int64, error) {
	res, err := s.statuses.DeleteMany(ctx, statusFilter(domainID, docType, filter))
	if err != nil {
		return 0, fmt.Errorf("documentmongo.DeleteStatuses: %w", err)
	}
	return res.DeletedCount, nil
}
