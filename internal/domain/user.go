package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the canonical identity record. A user holds at least one of
// PasswordHash, GoogleID or AppleID; email is unique across every creation
// path so the same person signing in through different channels resolves to
// one account.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email"                   json:"email"`
	Name         string             `bson:"name"                    json:"name"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	GoogleID     string             `bson:"google_id,omitempty"     json:"-"`
	AppleID      string             `bson:"apple_id,omitempty"      json:"-"`
	Picture      string             `bson:"picture,omitempty"       json:"picture,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"              json:"created_at"`
}

// Profile is the non-sensitive projection returned to clients. It never
// carries credential fields.
type Profile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:      u.ID.Hex(),
		Email:   u.Email,
		Name:    u.Name,
		Picture: u.Picture,
	}
}

// Provider identifies a federated identity source.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)
