package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/happsea/hub-sso-bridge/pkg/auth"
)

// uniqueViolation is the PostgreSQL error code for a unique-constraint
// violation.
const uniqueViolation = "23505"

// ConnectionConfig holds PostgreSQL connection pool settings
type ConnectionConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
}

// Connect opens and verifies a PostgreSQL connection pool
func Connect(config ConnectionConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(config.MaxConns)
	db.SetMaxIdleConns(config.MinConns)
	db.SetConnMaxLifetime(config.MaxLifetime)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed user store and ensures
// the schema exists.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	store := &PostgresStore{db: db}
	if err := store.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to ensure users schema: %w", err)
	}

	return store, nil
}

// ensureSchema creates the users and profiles tables if they don't exist
func (s *PostgresStore) ensureSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		username VARCHAR(255) NOT NULL,
		name VARCHAR(255),
		role VARCHAR(20) NOT NULL DEFAULT 'user',
		locale VARCHAR(35),
		completed_onboarding BOOLEAN NOT NULL DEFAULT false,
		identity_provider VARCHAR(20) NOT NULL,
		identity_provider_id VARCHAR(255),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS profiles (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		username VARCHAR(255) NOT NULL,
		organization_id BIGINT,
		moved_from_id BIGINT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_profiles_user_id ON profiles(user_id);
	CREATE INDEX IF NOT EXISTS idx_profiles_moved_from_id ON profiles(moved_from_id);
	`

	_, err := s.db.Exec(query)
	return err
}

// GetByEmail looks up a user by lowercased email
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	query := `
		SELECT id, email, username, name, role, locale,
			completed_onboarding, identity_provider, identity_provider_id,
			created_at, updated_at
		FROM users
		WHERE email = $1
	`

	user := &auth.User{}
	var name, locale, providerID sql.NullString
	err := s.db.QueryRowContext(ctx, query, strings.ToLower(email)).Scan(
		&user.ID, &user.Email, &user.Username, &name, &user.Role, &locale,
		&user.CompletedOnboarding, &user.IdentityProvider, &providerID,
		&user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user.Name = name.String
	user.Locale = locale.String
	user.IdentityProviderID = providerID.String

	return user, nil
}

// Create provisions a new account. Hub-originated users skip
// onboarding and carry the internal identity provider tag with the
// lowercased email as the provider ID.
func (s *PostgresStore) Create(ctx context.Context, nu NewUser) (*auth.User, error) {
	email := strings.ToLower(nu.Email)

	query := `
		INSERT INTO users (
			email, username, name, role, locale,
			completed_onboarding, identity_provider, identity_provider_id,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, true, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	user := &auth.User{
		Email:               email,
		Username:            nu.Username,
		Name:                nu.Name,
		Role:                auth.RoleUser,
		Locale:              nu.Locale,
		CompletedOnboarding: true,
		IdentityProvider:    auth.IdentityProviderInternal,
		IdentityProviderID:  email,
	}

	err := s.db.QueryRowContext(ctx, query,
		email, nu.Username, nu.Name, auth.RoleUser, nu.Locale,
		auth.IdentityProviderInternal, email,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// ProfilesForUser returns the user's profiles oldest first, including
// profiles that were moved from another account.
func (s *PostgresStore) ProfilesForUser(ctx context.Context, userID int64) ([]*auth.Profile, error) {
	query := `
		SELECT id, user_id, username, organization_id, moved_from_id, created_at
		FROM profiles
		WHERE user_id = $1 OR moved_from_id = $1
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*auth.Profile
	for rows.Next() {
		profile := &auth.Profile{}
		var orgID, movedFromID sql.NullInt64
		if err := rows.Scan(&profile.ID, &profile.UserID, &profile.Username,
			&orgID, &movedFromID, &profile.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		if orgID.Valid {
			profile.OrganizationID = &orgID.Int64
		}
		if movedFromID.Valid {
			profile.MovedFromID = &movedFromID.Int64
		}
		profiles = append(profiles, profile)
	}

	return profiles, rows.Err()
}

// Stats reports connection pool gauges for metrics collection
func (s *PostgresStore) Stats() sql.DBStats {
	return s.db.Stats()
}
