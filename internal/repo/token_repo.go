package repo

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

const sessionTokensColl = "session_tokens"

// SessionToken is one registry row. Its presence is what keeps a well-signed
// token alive: sign-out deletes the row and the token dies before its
// cryptographic expiry.
type SessionToken struct {
	ID        interface{}        `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	TokenHash string             `bson:"token_hash"` // sha256(token), raw token never stored
	ExpiresAt time.Time          `bson:"expires_at"` // TTL index reaps the row
	CreatedAt time.Time          `bson:"created_at"`
}

func (s *Store) EnsureSessionTokenIndexes(ctx context.Context) error {
	coll := s.DB.Collection(sessionTokensColl)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// SaveSessionToken persists the registry row for (userID, token). The caller
// only hands the token out after this returns nil.
func (s *Store) SaveSessionToken(ctx context.Context, userID primitive.ObjectID, token string, expiresAt time.Time) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.session_tokens.insert",
		tracer.Tag("user_id", userID.Hex()))
	defer sp.Finish()

	row := SessionToken{
		UserID:    userID,
		TokenHash: hashToken(token),
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.DB.Collection(sessionTokensColl).InsertOne(ctx, row); err != nil {
		sp.SetTag("error", err)
		return fmt.Errorf("insert session token: %w", err)
	}
	return nil
}

// SessionTokenExists reports registry membership for (userID, token).
func (s *Store) SessionTokenExists(ctx context.Context, userID primitive.ObjectID, token string) (bool, error) {
	err := s.DB.Collection(sessionTokensColl).
		FindOne(ctx, bson.M{"user_id": userID, "token_hash": hashToken(token)}).
		Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find session token: %w", err)
	}
	return true, nil
}

// DeleteSessionToken removes the matching registry row and reports whether
// one existed.
func (s *Store) DeleteSessionToken(ctx context.Context, userID primitive.ObjectID, token string) (bool, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.session_tokens.delete",
		tracer.Tag("user_id", userID.Hex()))
	defer sp.Finish()

	res, err := s.DB.Collection(sessionTokensColl).
		DeleteOne(ctx, bson.M{"user_id": userID, "token_hash": hashToken(token)})
	if err != nil {
		sp.SetTag("error", err)
		return false, fmt.Errorf("delete session token: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// DeleteSessionTokensByUser voids every live session of a user. Runs before
// the user row is deleted so there is never a live token without an owner.
func (s *Store) DeleteSessionTokensByUser(ctx context.Context, userID primitive.ObjectID) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.session_tokens.purge",
		tracer.Tag("user_id", userID.Hex()))
	defer sp.Finish()

	if _, err := s.DB.Collection(sessionTokensColl).DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		sp.SetTag("error", err)
		return fmt.Errorf("purge session tokens: %w", err)
	}
	return nil
}
