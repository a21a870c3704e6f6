package hubsso

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// DefaultReplayWindow is how far an assertion timestamp may drift from
// the current time, in either direction. Inclusive: an assertion
// exactly at the window edge is still fresh.
const DefaultReplayWindow = 300 * time.Second

// Validator checks assertion signatures and freshness. It is stateless
// apart from the injected secret source and clock.
type Validator struct {
	secrets SecretSource
	window  time.Duration
	now     func() time.Time
}

// NewValidator creates a validator. A zero window falls back to
// DefaultReplayWindow.
func NewValidator(secrets SecretSource, window time.Duration) *Validator {
	if window <= 0 {
		window = DefaultReplayWindow
	}
	return &Validator{
		secrets: secrets,
		window:  window,
		now:     time.Now,
	}
}

// Validate checks that the signature matches
// HMAC-SHA256(secret, email + ":" + timestamp) and that the timestamp
// is within the replay window. The secret is fetched fresh on every
// call; an absent secret fails closed with ReasonMissingSecret.
func (v *Validator) Validate(email, timestamp, signature string) Result {
	secret := v.secrets.Secret()
	if secret == "" {
		return Result{Reason: ReasonMissingSecret}
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return Result{Reason: ReasonMalformed}
	}

	nowMillis := v.now().UnixMilli()
	drift := nowMillis - ts*1000
	if drift < 0 {
		drift = -drift
	}
	if drift > v.window.Milliseconds() {
		return Result{Reason: ReasonExpired}
	}

	supplied, err := hex.DecodeString(signature)
	if err != nil || len(supplied) != sha256.Size {
		// A malformed or wrong-length signature is rejected outright;
		// there is no length information to leak once the comparison
		// only ever runs on fixed-size digests.
		return Result{Reason: ReasonBadSignature}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(email + ":" + timestamp))
	expected := mac.Sum(nil)

	if !hmac.Equal(supplied, expected) {
		return Result{Reason: ReasonBadSignature}
	}

	return Result{OK: true}
}

// Sign computes the hex signature for an (email, timestamp) pair with
// the given secret. Used by tests and by operators generating
// assertions by hand.
func Sign(secret, email, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(email + ":" + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}
