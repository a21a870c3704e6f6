package users

import (
	"context"
	"errors"

	"github.com/happsea/hub-sso-bridge/pkg/auth"
)

var (
	// ErrNotFound indicates no user exists for the given email.
	ErrNotFound = errors.New("user not found")

	// ErrEmailTaken indicates a unique-constraint violation on insert.
	// The caller should retry the lookup: another request created the
	// same account first.
	ErrEmailTaken = errors.New("email already taken")
)

// NewUser holds the fields required to provision an account.
type NewUser struct {
	Email    string
	Name     string
	Username string
	Locale   string
}

// Store provides user and profile persistence
type Store interface {
	// GetByEmail looks up a user by email. The email is lowercased
	// before the query. Returns ErrNotFound when no account exists.
	GetByEmail(ctx context.Context, email string) (*auth.User, error)

	// Create provisions a new account. Returns ErrEmailTaken when the
	// email already has an account.
	Create(ctx context.Context, nu NewUser) (*auth.User, error)

	// ProfilesForUser returns the user's profiles, including profiles
	// left behind by account moves, ordered oldest first.
	ProfilesForUser(ctx context.Context, userID int64) ([]*auth.Profile, error)
}
