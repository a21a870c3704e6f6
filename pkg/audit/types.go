package audit

import "time"

// Outcome classifies a login attempt
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted" // Signature valid, URL issued
	OutcomeRejected Outcome = "rejected" // Validation failed
	OutcomeError    Outcome = "error"    // Internal failure during processing
)

// Event is one recorded login attempt
type Event struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Email     string    `json:"email"`
	Outcome   Outcome   `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	UserID    *int64    `json:"user_id,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}
