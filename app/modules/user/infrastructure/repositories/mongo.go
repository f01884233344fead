package userdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	userdomain "github.com/Black-And-White-Club/hydro/app/modules/user/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoUser struct {
	UID        int64  `bson:"_id"`
	Uname      string `bson:"uname"`
	UnameLower string `bson:"unameLower"`
	Mail       string `bson:"mail,omitempty"`
	Avatar     string `bson:"avatar,omitempty"`
	School     string `bson:"school,omitempty"`
}

type mongoDomainUser struct {
	DomainID    string `bson:"domainId"`
	UID         int64  `bson:"uid"`
	DisplayName string `bson:"displayName,omitempty"`
}

// MongoRepository stores users in the "user" and "domain.user" collections.
type MongoRepository struct {
	users   *mongo.Collection
	members *mongo.Collection
}

var _ Repository = (*MongoRepository)(nil)

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		users:   db.Collection("user"),
		members: db.Collection("domain.user"),
	}
}

// EnsureIndexes creates the unique uname and membership indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "unameLower", Value: 1}},
		Options: options.Index().SetName("uname").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	_, err = r.members.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "domainId", Value: 1}, {Key: "uid", Value: 1}},
		Options: options.Index().SetName("basic").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create domain user indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, user *userdomain.User) error {
	_, err := r.users.InsertOne(ctx, mongoUser{
		UID:        user.UID,
		Uname:      user.Uname,
		UnameLower: strings.ToLower(user.Uname),
		Mail:       user.Mail,
		Avatar:     user.Avatar,
		School:     user.School,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("userdb.Create: %w", err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, domainID string, uid int64) (*userdomain.User, error) {
	users, err := r.GetByUIDs(ctx, domainID, []int64{uid})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return users[0], nil
}

func (r *MongoRepository) GetByUIDs(ctx context.Context, domainID string, uids []int64) ([]*userdomain.User, error) {
	if len(uids) == 0 {
		return []*userdomain.User{}, nil
	}
	cur, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": uids}})
	if err != nil {
		return nil, fmt.Errorf("userdb.GetByUIDs: %w", err)
	}
	var rows []mongoUser
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("userdb.GetByUIDs: %w", err)
	}

	cur, err = r.members.Find(ctx, bson.M{"domainId": domainID, "uid": bson.M{"$in": uids}})
	if err != nil {
		return nil, fmt.Errorf("userdb.GetByUIDs: %w", err)
	}
	var members []mongoDomainUser
	if err := cur.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("userdb.GetByUIDs: %w", err)
	}
	names := make(map[int64]string, len(members))
	for _, m := range members {
		names[m.UID] = m.DisplayName
	}

	out := make([]*userdomain.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, &userdomain.User{
			UID:         row.UID,
			Uname:       row.Uname,
			Mail:        row.Mail,
			Avatar:      row.Avatar,
			School:      row.School,
			DisplayName: names[row.UID],
		})
	}
	return out, nil
}

func (r *MongoRepository) SetDisplayName(ctx context.Context, domainID string, uid int64, displayName string) error {
	_, err := r.members.UpdateOne(ctx,
		bson.M{"domainId": domainID, "uid": uid},
		bson.M{"$set": bson.M{"displayName": displayName}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("userdb.SetDisplayName: %w", err)
	}
	return nil
}
