package auth

import "time"

// Role represents the application-level role of a user
type Role string

const (
	RoleUser  Role = "user"  // Regular account
	RoleAdmin Role = "admin" // Full administrative access
)

// IdentityProvider tags where an account's identity originates
type IdentityProvider string

const (
	// IdentityProviderInternal marks accounts owned by the application
	// itself. Hub-provisioned users carry this tag with the lowercased
	// email as the provider-specific ID.
	IdentityProviderInternal IdentityProvider = "internal"
)

// User represents a persisted application account
type User struct {
	ID                  int64            `json:"id"`
	Email               string           `json:"email"`
	Username            string           `json:"username"`
	Name                string           `json:"name,omitempty"`
	Role                Role             `json:"role"`
	Locale              string           `json:"locale,omitempty"`
	CompletedOnboarding bool             `json:"completed_onboarding"`
	IdentityProvider    IdentityProvider `json:"identity_provider"`
	IdentityProviderID  string           `json:"identity_provider_id,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// Profile represents one of a user's profiles. A user can accumulate
// several, including profiles left behind by account moves.
type Profile struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Username       string    `json:"username"`
	OrganizationID *int64    `json:"organization_id,omitempty"`
	MovedFromID    *int64    `json:"moved_from_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SessionIdentity is handed to the external session framework after a
// successful SSO authorization. The framework owns cookie issuance; the
// bridge only resolves who the user is.
type SessionIdentity struct {
	ID                  int64    `json:"id"`
	Email               string   `json:"email"`
	Name                string   `json:"name,omitempty"`
	Username            string   `json:"username"`
	Role                Role     `json:"role"`
	Locale              string   `json:"locale,omitempty"`
	Profile             *Profile `json:"profile,omitempty"`
	BelongsToActiveTeam bool     `json:"belongs_to_active_team"`
}
