package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/models/user"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	collectionName = "users"

	usernameIndex = "username_unique"
	emailIndex    = "email_unique"
)

type userDocument struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	Role         string    `bson:"role"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func toDocument(u *user.User) userDocument {
	return userDocument{
		ID:           u.ID.String(),
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDocument) toUser() (*user.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("user id %q: %w", d.ID, err)
	}
	return &user.User{
		ID:           id,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         user.Role(d.Role),
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}, nil
}

type UserStorage struct {
	coll *mongo.Collection
	log  *zap.Logger
}

func NewUserStorage(db *mongo.Database, log *zap.Logger) *UserStorage {
	return &UserStorage{coll: db.Collection(collectionName), log: log}
}

// EnsureIndexes creates the unique indexes that back duplicate detection.
func (s *UserStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName(usernameIndex)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(emailIndex)},
	})
	if err != nil {
		return fmt.Errorf("creating user indexes: %w", err)
	}
	return nil
}

func (s *UserStorage) Create(ctx context.Context, userToCreate *user.User) error {
	defer logger.WarnIfSlow(s.log, "user.create", time.Now())

	if _, err := s.coll.InsertOne(ctx, toDocument(userToCreate)); err != nil {
		return translate("inserting user", err)
	}
	return nil
}

func (s *UserStorage) Update(ctx context.Context, userToUpdate *user.User) error {
	defer logger.WarnIfSlow(s.log, "user.update", time.Now())

	doc := toDocument(userToUpdate)
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": bson.M{
		"username":     doc.Username,
		"email":        doc.Email,
		"passwordHash": doc.PasswordHash,
		"role":         doc.Role,
		"updatedAt":    doc.UpdatedAt,
	}})
	if err != nil {
		return translate("updating user", err)
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *UserStorage) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.findOne(ctx, bson.M{"_id": id.String()})
}

func (s *UserStorage) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserStorage) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *UserStorage) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if res.DeletedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// Search matches username or email case-insensitively, ordered by username
func (s *UserStorage) Search(ctx context.Context, query string, page, limit int) ([]*user.User, int, error) {
	defer logger.WarnIfSlow(s.log, "user.search", time.Now())

	pattern := bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"}
	filter := bson.M{"$or": bson.A{bson.M{"username": pattern}, bson.M{"email": pattern}}}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "username", Value: 1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("searching users: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decoding users: %w", err)
	}

	users := make([]*user.User, 0, len(docs))
	for _, doc := range docs {
		u, err := doc.toUser()
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, int(total), nil
}

func (s *UserStorage) findOne(ctx context.Context, filter bson.M) (*user.User, error) {
	var doc userDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return doc.toUser()
}

func translate(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		switch {
		case strings.Contains(err.Error(), usernameIndex):
			return repo.NewDuplicate("username")
		case strings.Contains(err.Error(), emailIndex):
			return repo.NewDuplicate("email")
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
