// Package auth defines the identity model shared across the SSO bridge.
//
// # Overview
//
// The bridge materializes users in the application database on first
// successful Hub login. This package holds the types those users are
// expressed in (User, Profile, SessionIdentity) plus the username
// derivation used when a user is provisioned.
//
// # Key Components
//
// User: a persisted application account
//
//	user := &auth.User{
//		Email:    "alice@example.com",
//		Username: "alice-smith-k3x9m2",
//		Role:     auth.RoleUser,
//	}
//
// SessionIdentity: what the external session framework receives after a
// successful authorization
//
//	identity := &auth.SessionIdentity{
//		ID:       user.ID,
//		Email:    user.Email,
//		Username: user.Username,
//		Profile:  profile,
//	}
//
// # Username Derivation
//
// SSO-provisioned usernames are the slugified display name plus a random
// six character alphanumeric suffix:
//
//	username := auth.DeriveUsername("Alice Smith")
//	// "alice-smith-k3x9m2"
//
// Collisions are possible but rare; the database unique constraint is the
// arbiter, and a collision surfaces as a retryable creation failure.
//
// # Related Packages
//
//   - pkg/users: persistence for User and Profile
//   - pkg/hubsso: HMAC validation and the authorize flow that builds a
//     SessionIdentity
package auth
