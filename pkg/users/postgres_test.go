package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happsea/hub-sso-bridge/pkg/auth"
)

func newTestStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	return store, mock
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "username", "name", "role", "locale",
		"completed_onboarding", "identity_provider", "identity_provider_id",
		"created_at", "updated_at",
	})
}

func TestGetByEmail(t *testing.T) {
	store, mock := newTestStore(t)
	now := time.Now().UTC()

	rows := userRows().AddRow(
		int64(42), "alice@example.com", "alice-k3x9m2", "Alice", "user", "en",
		true, "internal", "alice@example.com",
		now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	user, err := store.GetByEmail(context.Background(), "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "alice-k3x9m2", user.Username)
	assert.Equal(t, auth.RoleUser, user.Role)
	assert.Equal(t, auth.IdentityProviderInternal, user.IdentityProvider)
	assert.True(t, user.CompletedOnboarding)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByEmail_NotFound(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("ghost@example.com").
		WillReturnRows(userRows())

	_, err := store.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate(t *testing.T) {
	store, mock := newTestStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("alice@example.com", "alice-k3x9m2", "Alice", "user", "en",
			"internal", "alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(7), now, now))

	user, err := store.Create(context.Background(), NewUser{
		Email:    "Alice@Example.com",
		Name:     "Alice",
		Username: "alice-k3x9m2",
		Locale:   "en",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "alice@example.com", user.IdentityProviderID)
	assert.True(t, user.CompletedOnboarding)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_EmailTaken(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.Create(context.Background(), NewUser{
		Email:    "alice@example.com",
		Username: "alice-k3x9m2",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_OtherError(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Create(context.Background(), NewUser{Email: "a@b.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfilesForUser(t *testing.T) {
	store, mock := newTestStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "username", "organization_id", "moved_from_id", "created_at",
	}).
		AddRow(int64(1), int64(42), "alice-k3x9m2", nil, nil, now).
		AddRow(int64(2), int64(42), "alice-org", int64(9), int64(17), now)

	mock.ExpectQuery("SELECT (.+) FROM profiles").
		WithArgs(int64(42)).
		WillReturnRows(rows)

	profiles, err := store.ProfilesForUser(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, int64(1), profiles[0].ID)
	assert.Nil(t, profiles[0].OrganizationID)
	require.NotNil(t, profiles[1].OrganizationID)
	assert.Equal(t, int64(9), *profiles[1].OrganizationID)
	require.NotNil(t, profiles[1].MovedFromID)
	assert.Equal(t, int64(17), *profiles[1].MovedFromID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfilesForUser_Empty(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT (.+) FROM profiles").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "username", "organization_id", "moved_from_id", "created_at",
		}))

	profiles, err := store.ProfilesForUser(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, profiles)
	assert.NoError(t, mock.ExpectationsWereMet())
}
