// Package audit records the outcome of every SSO login attempt.
//
// Each attempt, accepted or rejected, produces one row in
// sso_login_attempts with the claimed email, the outcome, the rejection
// reason when there is one, and request correlation data. A cron job
// prunes rows past the configured retention.
//
//	recorder, err := audit.NewDBRecorder(db)
//	recorder.Record(ctx, &audit.Event{
//		Email:   "alice@example.com",
//		Outcome: audit.OutcomeRejected,
//		Reason:  "expired",
//	})
//
// Recording is best effort from the caller's point of view: a failed
// insert is logged, never surfaced to the end user.
package audit
