package hubsso

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/happsea/hub-sso-bridge/pkg/audit"
	"github.com/happsea/hub-sso-bridge/pkg/config"
	"github.com/happsea/hub-sso-bridge/pkg/httputil"
	"github.com/happsea/hub-sso-bridge/pkg/observability"
)

// Service exposes the HTTP surface of the bridge: the login URL issuer
// and the callback bridge.
type Service struct {
	validator *Validator
	secrets   SecretSource
	replay    ReplayCache
	recorder  audit.Recorder
	metrics   *observability.Metrics
	logger    *observability.Logger
	cfg       config.HubConfig
}

// NewService creates the HTTP service. Pass NopReplayCache and
// audit.NopRecorder when those features are disabled.
func NewService(validator *Validator, secrets SecretSource, replay ReplayCache,
	recorder audit.Recorder, metrics *observability.Metrics,
	logger *observability.Logger, cfg config.HubConfig) *Service {
	return &Service{
		validator: validator,
		secrets:   secrets,
		replay:    replay,
		recorder:  recorder,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// RegisterRoutes registers the SSO endpoints. Requests with a wrong
// method on a registered path get a 405 from the router.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.Handle("/sso/login",
		s.metrics.InstrumentHandler("/sso/login", http.HandlerFunc(s.HandleLogin))).
		Methods(http.MethodPost)
	r.Handle("/sso/callback",
		s.metrics.InstrumentHandler("/sso/callback", http.HandlerFunc(s.HandleCallback))).
		Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteMethodNotAllowed(w, "method not allowed")
	})
}

// RegisterAuthorizeRoute exposes the credentials-authorize hook over
// HTTP for the session framework's server-to-server call.
func (s *Service) RegisterAuthorizeRoute(r *mux.Router, authorizer *Authorizer) {
	r.Handle("/sso/authorize",
		s.metrics.InstrumentHandler("/sso/authorize", AuthorizeHandler(authorizer))).
		Methods(http.MethodPost)
}

type loginRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
	Signature string `json:"signature"`
}

type loginResponse struct {
	URL string `json:"url"`
}

// HandleLogin validates an inbound Hub assertion and, when valid,
// returns the callback URL re-embedding the signed parameters.
func (s *Service) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	// Configuration fault, not a validation error: no secret means the
	// feature is off for any input.
	if !s.secrets.Enabled() {
		s.logger.Warn("sso login requested but no shared secret is configured")
		s.metrics.LoginRequestsTotal.WithLabelValues("unconfigured").Inc()
		httputil.WriteServiceUnavailable(w, "sso is not configured")
		return
	}

	var req loginRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}

	logger.WithFields(map[string]interface{}{
		"email":             req.Email,
		"secret_configured": true,
	}).Info("sso login request received")

	if req.Email == "" || req.Timestamp == "" || req.Signature == "" {
		s.metrics.LoginRequestsTotal.WithLabelValues("bad_request").Inc()
		httputil.WriteBadRequest(w, "email, timestamp and signature are required")
		return
	}

	if req.Name == "" {
		req.Name = emailLocalPart(req.Email)
	}

	result := s.validator.Validate(req.Email, req.Timestamp, req.Signature)
	if !result.OK {
		// The secret can disappear between the Enabled probe and the
		// validation; that is still a configuration fault.
		if result.Reason == ReasonMissingSecret {
			s.metrics.LoginRequestsTotal.WithLabelValues("unconfigured").Inc()
			httputil.WriteServiceUnavailable(w, "sso is not configured")
			return
		}
		s.rejectLogin(w, r, req.Email, result.Reason)
		return
	}

	firstUse, err := s.replay.MarkUsed(ctx, req.Email, req.Timestamp, req.Signature, s.window())
	if err != nil {
		// Best effort: a broken cache backend never fails a valid login.
		logger.WithError(err).Warn("replay cache unavailable, skipping single-use check")
	} else if !firstUse {
		s.metrics.ReplayRejectionsTotal.Inc()
		s.rejectLogin(w, r, req.Email, ReasonReplayed)
		return
	}

	callbackURL := s.buildCallbackURL(req)

	s.recordAttempt(ctx, r, req.Email, audit.OutcomeAccepted, "")
	s.metrics.LoginRequestsTotal.WithLabelValues("accepted").Inc()
	logger.WithField("email", req.Email).Info("sso login url issued")

	httputil.WriteSuccess(w, loginResponse{URL: callbackURL})
}

// rejectLogin maps any validation failure to a single externally
// visible 401 while keeping the fine-grained reason in logs, metrics
// and the audit trail.
func (s *Service) rejectLogin(w http.ResponseWriter, r *http.Request, email string, reason Reason) {
	logger := observability.FromContext(r.Context())

	switch reason {
	case ReasonExpired:
		logger.WithField("email", email).Warn("sso assertion expired")
	case ReasonReplayed:
		logger.WithField("email", email).Warn("sso assertion already used")
	default:
		logger.WithField("email", email).Warn("sso assertion signature invalid")
	}

	s.metrics.ValidationFailuresTotal.WithLabelValues(string(reason)).Inc()
	s.metrics.LoginRequestsTotal.WithLabelValues("rejected").Inc()
	s.recordAttempt(r.Context(), r, email, audit.OutcomeRejected, string(reason))

	httputil.WriteUnauthorized(w, "invalid signature")
}

// recordAttempt writes one audit row. Failures are logged, never
// surfaced to the caller.
func (s *Service) recordAttempt(ctx context.Context, r *http.Request, email string, outcome audit.Outcome, reason string) {
	event := &audit.Event{
		Email:     email,
		Outcome:   outcome,
		Reason:    reason,
		IPAddress: remoteIP(r),
		RequestID: observability.GetRequestID(ctx),
	}
	if err := s.recorder.Record(ctx, event); err != nil {
		s.logger.WithError(err).Warn("failed to record login attempt")
	}
}

// remoteIP strips the port from RemoteAddr, falling back to the raw
// value for non host:port forms.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// window returns the configured replay window with the package default
// as fallback.
func (s *Service) window() time.Duration {
	if s.cfg.ReplayWindow > 0 {
		return s.cfg.ReplayWindow
	}
	return DefaultReplayWindow
}

// buildCallbackURL re-embeds the validated parameters as query
// parameters of the callback endpoint.
func (s *Service) buildCallbackURL(req loginRequest) string {
	params := url.Values{}
	params.Set("email", req.Email)
	params.Set("name", req.Name)
	params.Set("timestamp", req.Timestamp)
	params.Set("signature", req.Signature)

	return s.cfg.BaseURL + "/sso/callback?" + params.Encode()
}

// emailLocalPart returns everything before the first "@", or the input
// unchanged when it contains none.
func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
