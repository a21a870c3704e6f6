// Package hubsso implements the Hub single sign-on bridge.
//
// # Overview
//
// The external identity hub ("Hub") authenticates users into this
// application via signed, time-limited assertions rather than a
// federated protocol. An assertion is the tuple (email, name,
// timestamp, signature) where
//
//	signature = hex(HMAC-SHA256(secret, email + ":" + timestamp))
//
// and the timestamp must lie within the replay window of the current
// time. The shared secret is re-read on every request so that secrets
// injected after process start take effect without a restart. No
// secret means the feature is off: validation fails closed and the
// login endpoint answers 503.
//
// # Flow
//
// 1. The Hub POSTs the assertion to /sso/login. The handler validates
// it and returns a callback URL re-embedding the same parameters.
//
// 2. The browser navigates to /sso/callback, which renders an
// auto-submitting form that fetches a CSRF token and POSTs the fields
// to the external credentials-authorize endpoint.
//
// 3. The session framework invokes Authorizer.Authorize, which
// re-validates the assertion (this endpoint can be called directly,
// so it trusts nothing upstream) and resolves or creates the user.
//
// # Key Components
//
//	Validator   - pure HMAC + freshness check with structured reasons
//	SecretSource - per-request secret lookup (env or watched file)
//	ReplayCache - best-effort single-use enforcement within the window
//	Service     - HTTP handlers for /sso/login and /sso/callback
//	Authorizer  - find-or-create user, builds a SessionIdentity
//
// # Related Packages
//
//   - pkg/users: user and profile persistence
//   - pkg/audit: login attempt audit trail
//   - pkg/observability: logging, metrics, health
package hubsso
