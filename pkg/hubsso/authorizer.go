package hubsso

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/happsea/hub-sso-bridge/pkg/audit"
	"github.com/happsea/hub-sso-bridge/pkg/auth"
	"github.com/happsea/hub-sso-bridge/pkg/httputil"
	"github.com/happsea/hub-sso-bridge/pkg/observability"
	"github.com/happsea/hub-sso-bridge/pkg/users"
)

// Authorizer is the credentials-authorize hook consumed by the
// external session framework. It re-validates the assertion on every
// call: this endpoint can be invoked directly, so upstream validation
// counts for nothing here.
type Authorizer struct {
	validator *Validator
	store     users.Store
	recorder  audit.Recorder
	metrics   *observability.Metrics
	logger    *observability.Logger
}

// NewAuthorizer creates the session materializer
func NewAuthorizer(validator *Validator, store users.Store, recorder audit.Recorder,
	metrics *observability.Metrics, logger *observability.Logger) *Authorizer {
	return &Authorizer{
		validator: validator,
		store:     store,
		recorder:  recorder,
		metrics:   metrics,
		logger:    logger,
	}
}

// Authorize validates the credentials and resolves or creates the
// user, returning the identity the session framework builds a session
// from. The caller owns cookie issuance.
func (a *Authorizer) Authorize(ctx context.Context, creds Credentials) (*auth.SessionIdentity, error) {
	logger := observability.FromContext(ctx)

	if creds.Email == "" || creds.Timestamp == "" || creds.Signature == "" {
		return nil, ErrMissingCredentials
	}

	result := a.validator.Validate(creds.Email, creds.Timestamp, creds.Signature)
	if !result.OK {
		logger.WithFields(map[string]interface{}{
			"email":  creds.Email,
			"reason": string(result.Reason),
		}).Warn("sso authorization rejected")
		a.metrics.ValidationFailuresTotal.WithLabelValues(string(result.Reason)).Inc()
		a.recordAttempt(ctx, creds.Email, audit.OutcomeRejected, string(result.Reason), nil)
		return nil, ErrInvalidSignature
	}

	name := creds.Name
	if name == "" {
		name = emailLocalPart(creds.Email)
	}

	user, err := a.findOrCreate(ctx, creds.Email, name)
	if err != nil {
		a.recordAttempt(ctx, creds.Email, audit.OutcomeError, "provisioning", nil)
		return nil, err
	}

	profile, err := a.canonicalProfile(ctx, user.ID)
	if err != nil {
		logger.WithError(err).WithField("email", creds.Email).Warn("failed to resolve profiles")
	}

	a.recordAttempt(ctx, creds.Email, audit.OutcomeAccepted, "", &user.ID)
	logger.WithFields(map[string]interface{}{
		"email":   user.Email,
		"user_id": user.ID,
	}).Info("sso authorization succeeded")

	return &auth.SessionIdentity{
		ID:                  user.ID,
		Email:               user.Email,
		Name:                name,
		Username:            user.Username,
		Role:                user.Role,
		Locale:              user.Locale,
		Profile:             profile,
		BelongsToActiveTeam: false,
	}, nil
}

// findOrCreate looks the user up by lowercased email and provisions
// one on first login. The create and the conflict re-read run on a
// detached context: a client abort must not interrupt an in-flight
// creation, or the "at most one user per email" invariant gets
// resolved by a half-finished write.
func (a *Authorizer) findOrCreate(ctx context.Context, email, name string) (*auth.User, error) {
	email = strings.ToLower(email)

	user, err := a.store.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	username, err := auth.DeriveUsername(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}

	writeCtx := context.WithoutCancel(ctx)
	user, err = a.store.Create(writeCtx, users.NewUser{
		Email:    email,
		Name:     name,
		Username: username,
	})
	if err == nil {
		a.metrics.UsersProvisionedTotal.Inc()
		return user, nil
	}

	if errors.Is(err, users.ErrEmailTaken) {
		// Lost the creation race; the winner's row is the account.
		a.metrics.ProvisionConflicts.Inc()
		user, err = a.store.GetByEmail(writeCtx, email)
		if err != nil {
			return nil, fmt.Errorf("%w: conflict re-read failed: %v", ErrProvisioning, err)
		}
		return user, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
}

// canonicalProfile picks the first profile, oldest first. Multi-profile
// users get an arbitrary "first"; no canonical ordering is defined for
// them yet.
func (a *Authorizer) canonicalProfile(ctx context.Context, userID int64) (*auth.Profile, error) {
	profiles, err := a.store.ProfilesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return profiles[0], nil
}

// AuthorizeHandler adapts Authorize to the HTTP shape the session
// framework calls. A thrown authorization maps to a login failure the
// framework surfaces to the end user.
func AuthorizeHandler(a *Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds Credentials
		if err := httputil.ParseJSON(r, &creds); err != nil {
			httputil.WriteBadRequest(w, "invalid request body")
			return
		}

		identity, err := a.Authorize(r.Context(), creds)
		switch {
		case errors.Is(err, ErrMissingCredentials):
			httputil.WriteBadRequest(w, "missing credentials")
		case errors.Is(err, ErrInvalidSignature):
			httputil.WriteUnauthorized(w, "invalid signature")
		case err != nil:
			httputil.WriteInternalError(w, errors.New("authorization failed"))
		default:
			httputil.WriteSuccess(w, identity)
		}
	}
}

func (a *Authorizer) recordAttempt(ctx context.Context, email string, outcome audit.Outcome, reason string, userID *int64) {
	event := &audit.Event{
		Email:     strings.ToLower(email),
		Outcome:   outcome,
		Reason:    reason,
		UserID:    userID,
		RequestID: observability.GetRequestID(ctx),
	}
	if err := a.recorder.Record(ctx, event); err != nil {
		a.logger.WithError(err).Warn("failed to record authorization attempt")
	}
}
