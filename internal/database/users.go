package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"placegrad/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const queryTimeout = 5 * time.Second

// UserStore persists user documents in a MongoDB collection.
type UserStore struct {
	col *mongo.Collection
}

// NewUserStore wraps the users collection.
func NewUserStore(col *mongo.Collection) *UserStore {
	return &UserStore{col: col}
}

// EnsureIndexes creates the unique username and email indexes.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// FindByLogin looks a user up by username or by lowercased email.
func (s *UserStore) FindByLogin(ctx context.Context, identifier string) (*models.User, error) {
	return s.findOne(ctx, loginFilter(identifier))
}

// FindByID loads a user by document id.
func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// FindByEmail loads a user by email; the address is lowercased first.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

// FindByUsernameOrEmail returns any user holding either identifier.
func (s *UserStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": strings.ToLower(email)},
	}})
}

// FindByResetToken returns the user whose stored reset hash matches and has
// not expired at now.
func (s *UserStore) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return s.findOne(ctx, resetTokenFilter(tokenHash, now))
}

// Create inserts u and assigns its generated id.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := s.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrDuplicateUser
		}
		return fmt.Errorf("error inserting user: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = id
	}
	return nil
}

// Save writes the named fields of u and its updatedAt stamp. Fields that are
// nil or empty on u are unset; fields not named are left untouched.
func (s *UserStore) Save(ctx context.Context, u *models.User, fields ...string) error {
	update, err := saveUpdate(u, fields)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": u.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrDuplicateUser
		}
		return fmt.Errorf("error saving user: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// saveUpdate builds the $set/$unset document for the named fields of u.
func saveUpdate(u *models.User, fields []string) (bson.M, error) {
	if len(fields) == 0 {
		return nil, errors.New("save user: no fields named")
	}
	doc, err := userDocument(u)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": u.UpdatedAt}
	unset := bson.M{}
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			set[f] = v
		} else {
			unset[f] = ""
		}
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update, nil
}

func userDocument(u *models.User) (bson.M, error) {
	raw, err := bson.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("error encoding user: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("error encoding user: %w", err)
	}
	return doc, nil
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var user models.User
	err := s.col.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return &user, nil
}

func loginFilter(identifier string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"username": identifier},
		bson.M{"email": strings.ToLower(identifier)},
	}}
}

func resetTokenFilter(tokenHash string, now time.Time) bson.M {
	return bson.M{
		"resetPasswordToken":   tokenHash,
		"resetPasswordExpires": bson.M{"$gt": now},
	}
}
