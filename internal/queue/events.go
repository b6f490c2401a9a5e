package queue

// Exchange and routing keys for account lifecycle events.
const (
	Exchange = "auth.events"

	KeyUserRegistered = "user.registered"
	KeyUserLoggedIn   = "user.loggedin"
	KeyUserSignedOut  = "user.signedout"
	KeyUserDeleted    = "user.deleted"
)

type UserRegistered struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type UserLoggedIn struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Provider string `json:"provider"` // "local" | "google" | "apple"
}

type UserSignedOut struct {
	UserID string `json:"user_id"`
}

type UserDeleted struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
