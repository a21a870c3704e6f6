package hubsso

import "errors"

// Reason classifies why an assertion was rejected
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonMissingSecret Reason = "missing-secret"
	ReasonMalformed     Reason = "malformed"
	ReasonExpired       Reason = "expired"
	ReasonBadSignature  Reason = "bad-signature"
	ReasonReplayed      Reason = "replayed"
)

// Result is the outcome of validating an assertion
type Result struct {
	OK     bool
	Reason Reason
}

// Credentials is the signed tuple the Hub vouches for. Name is
// optional; handlers default it to the local part of the email.
type Credentials struct {
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Timestamp string `json:"timestamp"`
	Signature string `json:"signature"`
}

var (
	// ErrMissingCredentials indicates required assertion fields are absent.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrInvalidSignature covers bad signatures and expired timestamps.
	// The fine-grained reason is retained in logs and the audit trail,
	// not in the error returned to the session framework.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrProvisioning indicates a transient failure creating the user.
	ErrProvisioning = errors.New("user provisioning failed")
)
