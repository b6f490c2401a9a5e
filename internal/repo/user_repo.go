package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/schedly/auth-service/internal/domain"
)

const usersColl = "users"

// profileProjection excludes credential fields. Reads that need the password
// hash go through the FindCredential* methods; everything else never sees it.
var profileProjection = bson.M{"password_hash": 0}

func (s *Store) EnsureUserIndexes(ctx context.Context) error {
	coll := s.DB.Collection(usersColl)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		// provider ids are unique when present; sparse so local-only users
		// don't collide on the missing field
		{
			Keys:    bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "apple_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	return err
}

// CreateUser inserts u and fills in its ID. Duplicate email (or provider id)
// comes back as domain.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.insert")
	defer sp.Finish()

	u.CreatedAt = time.Now().UTC()
	res, err := s.DB.Collection(usersColl).InsertOne(ctx, u)
	if err != nil {
		sp.SetTag("error", err)
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M, withCredential bool) (*domain.User, error) {
	opts := options.FindOne()
	if !withCredential {
		opts.SetProjection(profileProjection)
	}
	var u domain.User
	err := s.DB.Collection(usersColl).FindOne(ctx, filter, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"email": email}, false)
}

// FindCredentialByEmail is the only email lookup that returns the password
// hash. Used by sign-in.
func (s *Store) FindCredentialByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"email": email}, true)
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"_id": id}, false)
}

// FindCredentialByID returns the password hash too. Used by account removal.
func (s *Store) FindCredentialByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"_id": id}, true)
}

func (s *Store) FindUserByProviderID(ctx context.Context, provider domain.Provider, sub string) (*domain.User, error) {
	field, err := providerField(provider)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, bson.M{field: sub}, false)
}

// AttachProviderID records a provider subject on an existing user. Widening
// only: the update matches solely when the field is still unset.
func (s *Store) AttachProviderID(ctx context.Context, id primitive.ObjectID, provider domain.Provider, sub string) error {
	field, err := providerField(provider)
	if err != nil {
		return err
	}
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.attach_provider",
		tracer.Tag("provider", string(provider)))
	defer sp.Finish()

	res, err := s.DB.Collection(usersColl).UpdateOne(ctx,
		bson.M{"_id": id, field: bson.M{"$exists": false}},
		bson.M{"$set": bson.M{field: sub}},
	)
	if err != nil {
		sp.SetTag("error", err)
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("attach provider id: %w", err)
	}
	if res.MatchedCount == 0 {
		// Field already set; never narrow an existing binding. The same
		// subject again is fine, a different one means this email belongs
		// to an account bound elsewhere.
		cur, err := s.findOne(ctx, bson.M{"_id": id}, false)
		if err != nil {
			return err
		}
		if cur != nil && providerSub(cur, provider) != sub {
			sp.SetTag("conflict", true)
			return domain.ErrConflict
		}
	}
	return nil
}

func providerSub(u *domain.User, p domain.Provider) string {
	switch p {
	case domain.ProviderGoogle:
		return u.GoogleID
	case domain.ProviderApple:
		return u.AppleID
	}
	return ""
}

func (s *Store) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.delete")
	defer sp.Finish()

	_, err := s.DB.Collection(usersColl).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		sp.SetTag("error", err)
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func providerField(p domain.Provider) (string, error) {
	switch p {
	case domain.ProviderGoogle:
		return "google_id", nil
	case domain.ProviderApple:
		return "apple_id", nil
	default:
		return "", fmt.Errorf("unknown provider %q", p)
	}
}
