package dto

import (
	"time"

	"github.com/Jlndre/Capstone-eLife/internal/biometrics"
	"github.com/Jlndre/Capstone-eLife/internal/document"
	"github.com/Jlndre/Capstone-eLife/internal/domain"
	"github.com/Jlndre/Capstone-eLife/internal/service"
)

// DocumentVerificationResponse is returned when every document check passed.
type DocumentVerificationResponse struct {
	SubmissionID     string                    `json:"submission_id"`
	IdentityRecordID string                    `json:"identity_record_id"`
	Report           document.Report           `json:"report"`
	Liveness         biometrics.LivenessResult `json:"liveness"`
}

func NewDocumentVerificationResponse(r *service.DocumentResult) DocumentVerificationResponse {
	return DocumentVerificationResponse{
		SubmissionID:     r.SubmissionID,
		IdentityRecordID: r.IdentityRecordID,
		Report:           r.Report,
		Liveness:         r.Liveness,
	}
}

// LiveVerificationResponse is returned for an approved live match.
type LiveVerificationResponse struct {
	SubmissionID  string                    `json:"submission_id"`
	Status        domain.SubmissionStatus   `json:"status"`
	SelectedFrame string                    `json:"selected_frame"`
	Sharpness     float64                   `json:"sharpness"`
	Match         biometrics.MatchResult    `json:"match"`
	Liveness      biometrics.LivenessResult `json:"liveness"`
	VerifiedAt    time.Time                 `json:"verified_at"`
}

func NewLiveVerificationResponse(r *service.LiveResult) LiveVerificationResponse {
	return LiveVerificationResponse{
		SubmissionID:  r.SubmissionID,
		Status:        r.Status,
		SelectedFrame: r.SelectedFrame,
		Sharpness:     r.Sharpness,
		Match:         r.Match,
		Liveness:      r.Liveness,
		VerifiedAt:    r.VerifiedAt,
	}
}

// SubmissionResponse lists one verification attempt.
type SubmissionResponse struct {
	ID               string                  `json:"id"`
	Status           domain.SubmissionStatus `json:"status"`
	DocumentImageRef string                  `json:"document_image_ref,omitempty"`
	LiveImageRefs    []string                `json:"live_image_refs,omitempty"`
	SubmittedAt      time.Time               `json:"submitted_at"`
	VerifiedAt       *time.Time              `json:"verified_at,omitempty"`
	Notes            string                  `json:"notes,omitempty"`
}

func NewSubmissionResponses(subs []domain.VerificationSubmission) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, SubmissionResponse{
			ID:               s.ID,
			Status:           s.Status,
			DocumentImageRef: s.DocumentImageRef,
			LiveImageRefs:    s.LiveImageRefs,
			SubmittedAt:      s.SubmittedAt,
			VerifiedAt:       s.VerifiedAt,
			Notes:            s.Notes,
		})
	}
	return out
}
