package domain

import "time"

// SubmissionStatus enumerates the lifecycle of a verification attempt.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionFlagged  SubmissionStatus = "flagged"
)

// VerificationSubmission records one verification attempt.
type VerificationSubmission struct {
	ID               string
	UserID           string
	DocumentImageRef string
	LiveImageRefs    []string
	Status           SubmissionStatus
	SubmittedAt      time.Time
	VerifiedAt       *time.Time
	Notes            string
}

// Terminal reports whether the submission may no longer change.
func (s *VerificationSubmission) Terminal() bool {
	return s.Status == SubmissionApproved || s.Status == SubmissionFlagged
}
