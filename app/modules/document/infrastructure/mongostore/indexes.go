package documentmongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func exists(field string) bson.M {
	return bson.M{field: bson.M{"$exists": true}}
}

// EnsureIndexes creates the unique key indexes and the lookup and rank-order
// indexes. The unique status index is what makes CappedIncStatus safe.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	docIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "domainId", Value: 1}, {Key: "docType", Value: 1}, {Key: "docId", Value: 1}},
			Options: options.Index().SetName("basic").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "domainId", Value: 1}, {Key: "docType", Value: 1}, {Key: "owner", Value: 1}, {Key: "docId", Value: -1}},
			Options: options.Index().SetName("owner"),
		},
		{
			Keys:    bson.D{{Key: "domainId", Value: 1}, {Key: "docType", Value: 1}, {Key: "parentType", Value: 1}, {Key: "parentId", Value: 1}},
			Options: options.Index().SetName("parent").SetPartialFilterExpression(exists("parentType")),
		},
		{
			Keys:    bson.D{{Key: "domainId", Value: 1}, {Key: "docType", Value: 1}, {Key: "rule", Value: 1}, {Key: "docId", Value: -1}},
			Options: options.Index().SetName("rule").SetPartialFilterExpression(exists("rule")),
		},
		{
			Keys:    bson.D{{Key: "domainId", Value: 1}, {Key: "docType", Value: 1}, {Key: "beginAt", Value: -1}},
			Options: options.Index().SetName("beginAt").SetPartialFilterExpression(exists("beginAt")),
		},
		{
			Keys:    bson.D{{Key: "domainId", Value: 1}, {Key: "docType", Value: 1}, {Key: "pids", Value: 1}},
			Options: options.Index().SetName("pids").SetPartialFilterExpression(exists("pids")),
		},
	}
	if _, err := s.docs.Indexes().CreateMany(ctx, docIndexes); err != nil {
		return fmt.Errorf("failed to create document indexes: %w", err)
	}

	statusIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "domainId", Value: 1}, {Key: "docType", Value: 1}, {Key: "docId", Value: 1}, {Key: "uid", Value: 1}},
			Options: options.Index().SetName("basic").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "domainId", Value: 1}, {Key: "docType", Value: 1}, {Key: "uid", Value: 1}, {Key: "docId", Value: 1}},
			Options: options.Index().SetName("uid"),
		},
		{
			Keys:    bson.D{{Key: "domainId", Value: 1}, {Key: "docType", Value: 1}, {Key: "docId", Value: 1}, {Key: "score", Value: -1}},
			Options: options.Index().SetName("rank_score").SetPartialFilterExpression(exists("score")),
		},
		{
			Keys:    bson.D{{Key: "domainId", Value: 1}, {Key: "docType", Value: 1}, {Key: "docId", Value: 1}, {Key: "accept", Value: -1}, {Key: "time", Value: 1}},
			Options: options.Index().SetName("rank_accept").SetPartialFilterExpression(exists("accept")),
		},
		{
			Keys:    bson.D{{Key: "domainId", Value: 1}, {Key: "docType", Value: 1}, {Key: "docId", Value: 1}, {Key: "penaltyScore", Value: -1}, {Key: "time", Value: 1}},
			Options: options.Index().SetName("rank_penalty").SetPartialFilterExpression(exists("penaltyScore")),
		},
	}
	if _, err := s.statuses.Indexes().CreateMany(ctx, statusIndexes); err != nil {
		return fmt.Errorf("failed to create status indexes: %w", err)
	}
	return nil
}
