package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDocumentVerified   EventType = "document_verified"
	EventDocumentRejected   EventType = "document_rejected"
	EventLiveMatchApproved  EventType = "live_match_approved"
	EventLiveMatchFlagged   EventType = "live_match_flagged"
	EventCertificateIssued  EventType = "certificate_issued"
	EventObligationMissed   EventType = "obligation_missed"
	EventObligationComplete EventType = "obligation_completed"
)

// AllEventTypes lists every type a sink may subscribe to.
var AllEventTypes = []EventType{
	EventDocumentVerified,
	EventDocumentRejected,
	EventLiveMatchApproved,
	EventLiveMatchFlagged,
	EventCertificateIssued,
	EventObligationMissed,
	EventObligationComplete,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, userID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// DocumentCheckedPayload accompanies document_verified and document_rejected.
type DocumentCheckedPayload struct {
	SubmissionID string   `json:"submission_id,omitempty"`
	DocumentType string   `json:"document_type"`
	FailedChecks []string `json:"failed_checks,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}

// LiveMatchPayload accompanies live_match_approved and live_match_flagged.
type LiveMatchPayload struct {
	SubmissionID       string  `json:"submission_id"`
	AdjustedSimilarity float64 `json:"adjusted_similarity"`
	Distance           float64 `json:"euclidean_distance"`
	DeepfakeScore      float64 `json:"deepfake_score"`
	Synthetic          bool    `json:"synthetic"`
}

// CertificateIssuedPayload payload.
type CertificateIssuedPayload struct {
	CertificateID string `json:"certificate_id"`
	SubmissionID  string `json:"submission_id"`
	Quarter       string `json:"quarter"`
}

// ObligationPayload accompanies ledger transitions.
type ObligationPayload struct {
	Quarter string    `json:"quarter"`
	Year    int       `json:"year"`
	DueDate time.Time `json:"due_date"`
}
