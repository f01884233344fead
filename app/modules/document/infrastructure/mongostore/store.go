// Package documentmongo implements the document repository on MongoDB, using
// the collection layout "document" and "document.status".
package documentmongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	documentdb "github.com/Black-And-White-Club/hydro/app/modules/document/infrastructure/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DocumentCollection = "document"
	StatusCollection   = "document.status"
)

// Store implements documentdb.Repository.
type Store struct {
	docs     *mongo.Collection
	statuses *mongo.Collection
}

var _ documentdb.Repository = (*Store)(nil)

// NewStore binds the store to a database.
func NewStore(db *mongo.Database) *Store {
	return &Store{
		docs:     db.Collection(DocumentCollection),
		statuses: db.Collection(StatusCollection),
	}
}

// Connect dials uri and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

func docKeyFilter(key documentdomain.DocKey) bson.M {
	return bson.M{"domainId": key.DomainID, "docType": int(key.DocType), "docId": string(key.DocID)}
}

func statusKeyFilter(key documentdomain.StatusKey) bson.M {
	f := docKeyFilter(key.DocKey)
	f["uid"] = key.UID
	return f
}

func rowID(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func documentFilter(domainID string, docType documentdomain.DocType, filter documentdomain.Filter) bson.M {
	f := bson.M{"domainId": domainID, "docType": int(docType)}
	if len(filter.DocIDs) > 0 {
		ids := make([]string, len(filter.DocIDs))
		for i, id := range filter.DocIDs {
			ids[i] = string(id)
		}
		f["docId"] = bson.M{"$in": ids}
	}
	if filter.Owner != nil {
		f["owner"] = *filter.Owner
	}
	if filter.ParentType != nil {
		f["parentType"] = int(*filter.ParentType)
	}
	if filter.ParentID != nil {
		f["parentId"] = string(*filter.ParentID)
	}
	for k, v := range filter.Eq {
		f[k] = v
	}
	// An equality match against an array field matches any element.
	for k, v := range filter.Contains {
		f[k] = v
	}
	return f
}

func statusFilter(domainID string, docType documentdomain.DocType, filter documentdomain.StatusFilter) bson.M {
	f := bson.M{"domainId": domainID, "docType": int(docType)}
	if len(filter.DocIDs) > 0 {
		ids := make([]string, len(filter.DocIDs))
		for i, id := range filter.DocIDs {
			ids[i] = string(id)
		}
		f["docId"] = bson.M{"$in": ids}
	}
	if len(filter.UIDs) > 0 {
		f["uid"] = bson.M{"$in": filter.UIDs}
	}
	for k, v := range filter.Eq {
		f[k] = v
	}
	return f
}

func findOptions(opts documentdomain.FindOptions, tiebreak string) *options.FindOptions {
	sort := bson.D{}
	for _, s := range opts.Sort {
		dir := 1
		if s.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: s.Field, Value: dir})
	}
	sort = append(sort, bson.E{Key: tiebreak, Value: 1})
	fo := options.Find().SetSort(sort)
	if opts.Skip > 0 {
		fo.SetSkip(int64(opts.Skip))
	}
	if opts.Limit > 0 {
		fo.SetLimit(int64(opts.Limit))
	}
	return fo
}

func toBSONUpdate(u documentdomain.Update) bson.M {
	update := bson.M{}
	if len(u.Set) > 0 {
		set := bson.M{}
		for k, v := range u.Set {
			set[k] = v
		}
		update["$set"] = set
	}
	if len(u.Unset) > 0 {
		unset := bson.M{}
		for _, k := range u.Unset {
			unset[k] = ""
		}
		update["$unset"] = unset
	}
	if len(u.Inc) > 0 {
		inc := bson.M{}
		for k, v := range u.Inc {
			inc[k] = v
		}
		update["$inc"] = inc
	}
	if len(u.Push) > 0 {
		push := bson.M{}
		for k, v := range u.Push {
			push[k] = bson.M{"$each": v}
		}
		update["$push"] = push
	}
	if len(u.Pull) > 0 {
		pull := bson.M{}
		for k, v := range u.Pull {
			pull[k] = bson.M{"$in": v}
		}
		update["$pull"] = pull
	}
	if len(u.AddToSet) > 0 {
		add := bson.M{}
		for k, v := range u.AddToSet {
			add[k] = bson.M{"$each": v}
		}
		update["$addToSet"] = add
	}
	return update
}

var afterUpdate = options.FindOneAndUpdate().SetReturnDocument(options.After)

var afterUpsert = options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(true)

// InsertDocument stores a new document.
func (s *Store) InsertDocument(ctx context.Context, doc *documentdomain.Document) error {
	m := bson.M{}
	for k, v := range doc.Fields {
		if documentdomain.ReservedDocumentFields[k] {
			continue
		}
		m[k] = v
	}
	m["_id"] = rowID(doc.ID)
	m["domainId"] = doc.DomainID
	m["docType"] = int(doc.DocType)
	m["docId"] = string(doc.DocID)
	m["owner"] = doc.Owner
	m["content"] = doc.Content
	if doc.ParentType != nil {
		m["parentType"] = int(*doc.ParentType)
	}
	if doc.ParentID != nil {
		m["parentId"] = string(*doc.ParentID)
	}
	if _, err := s.docs.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return documentdb.ErrDuplicate
		}
		return fmt.Errorf("documentmongo.InsertDocument: %w", err)
	}
	return nil
}

// GetDocument loads one document.
func (s *Store) GetDocument(ctx context.Context, key documentdomain.DocKey) (*documentdomain.Document, error) {
	var m bson.M
	if err := s.docs.FindOne(ctx, docKeyFilter(key)).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, documentdb.ErrNotFound
		}
		return nil, fmt.Errorf("documentmongo.GetDocument: %w", err)
	}
	return decodeDocument(m)
}

// FindDocuments enumerates documents matching filter.
func (s *Store) FindDocuments(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter, opts documentdomain.FindOptions) ([]*documentdomain.Document, error) {
	cur, err := s.docs.Find(ctx, documentFilter(domainID, docType, filter), findOptions(opts, "_id"))
	if err != nil {
		return nil, fmt.Errorf("documentmongo.FindDocuments: %w", err)
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("documentmongo.FindDocuments: %w", err)
	}
	out := make([]*documentdomain.Document, 0, len(raw))
	for _, m := range raw {
		doc, err := decodeDocument(m)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// CountDocuments counts documents matching filter.
func (s *Store) CountDocuments(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter) (int64, error) {
	n, err := s.docs.CountDocuments(ctx, documentFilter(domainID, docType, filter))
	if err != nil {
		return 0, fmt.Errorf("documentmongo.CountDocuments: %w", err)
	}
	return n, nil
}

func (s *Store) findOneAndUpdateDoc(ctx context.Context, op string, filter, update bson.M) (*documentdomain.Document, error) {
	var m bson.M
	if err := s.docs.FindOneAndUpdate(ctx, filter, update, afterUpdate).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, documentdb.ErrNotFound
		}
		return nil, fmt.Errorf("documentmongo.%s: %w", op, err)
	}
	return decodeDocument(m)
}

// UpdateDocument applies update and returns the post-update document.
func (s *Store) UpdateDocument(ctx context.Context, key documentdomain.DocKey, update documentdomain.Update) (*documentdomain.Document, error) {
	if update.IsZero() {
		return s.GetDocument(ctx, key)
	}
	return s.findOneAndUpdateDoc(ctx, "UpdateDocument", docKeyFilter(key), toBSONUpdate(update))
}

// PushSub appends a sub-document.
func (s *Store) PushSub(ctx context.Context, key documentdomain.DocKey, field string, sub documentdomain.Fields) (*documentdomain.Document, error) {
	if sub.String(documentdomain.SubIDField) == "" {
		return nil, fmt.Errorf("%w: sub-document without %s", documentdb.ErrInvalidUpdate, documentdomain.SubIDField)
	}
	return s.findOneAndUpdateDoc(ctx, "PushSub", docKeyFilter(key), bson.M{"$push": bson.M{field: bson.M(sub)}})
}

// SetSub merges fields into one sub-document using the positional operator.
func (s *Store) SetSub(ctx context.Context, key documentdomain.DocKey, field, subID string, set documentdomain.Fields) (*documentdomain.Document, error) {
	filter := docKeyFilter(key)
	filter[field+"."+documentdomain.SubIDField] = subID
	update := bson.M{}
	for k, v := range set {
		if k == documentdomain.SubIDField {
			continue
		}
		update[field+".$."+k] = v
	}
	if len(update) == 0 {
		var m bson.M
		if err := s.docs.FindOne(ctx, filter).Decode(&m); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, documentdb.ErrNotFound
			}
			return nil, fmt.Errorf("documentmongo.SetSub: %w", err)
		}
		return decodeDocument(m)
	}
	return s.findOneAndUpdateDoc(ctx, "SetSub", filter, bson.M{"$set": update})
}

// DeleteSub removes one sub-document.
func (s *Store) DeleteSub(ctx context.Context, key documentdomain.DocKey, field, subID string) (*documentdomain.Document, error) {
	return s.findOneAndUpdateDoc(ctx, "DeleteSub", docKeyFilter(key), bson.M{
		"$pull": bson.M{field: bson.M{documentdomain.SubIDField: subID}},
	})
}

// DeleteDocument removes one document.
func (s *Store) DeleteDocument(ctx context.Context, key documentdomain.DocKey) error {
	res, err := s.docs.DeleteOne(ctx, docKeyFilter(key))
	if err != nil {
		return fmt.Errorf("documentmongo.DeleteDocument: %w", err)
	}
	if res.DeletedCount == 0 {
		return documentdb.ErrNotFound
	}
	return nil
}

// DeleteDocuments removes every matching document.
func (s *Store) DeleteDocuments(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter) (int64, error) {
	res, err := s.docs.DeleteMany(ctx, documentFilter(domainID, docType, filter))
	if err != nil {
		return 0, fmt.Errorf("documentmongo.DeleteDocuments: %w", err)
	}
	return res.DeletedCount, nil
}
