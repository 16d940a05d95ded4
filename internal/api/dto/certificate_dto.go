package dto

import (
	"encoding/json"
	"time"

	"github.com/Jlndre/Capstone-eLife/internal/domain"
	"github.com/Jlndre/Capstone-eLife/internal/service"
)

// IssueCertificateRequest optionally names the quarter, e.g. "Q1-2025".
type IssueCertificateRequest struct {
	Quarter string `json:"quarter"`
}

// CertificateResponse carries the stored snapshot verbatim.
type CertificateResponse struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	ProofSubmissionID string          `json:"proof_submission_id"`
	Quarter           string          `json:"quarter"`
	Filename          string          `json:"filename"`
	Timestamp         time.Time       `json:"timestamp"`
	SignatureHash     string          `json:"digital_signature_hash"`
	ContentSnapshot   json.RawMessage `json:"content_snapshot"`
}

func NewCertificateResponse(c *domain.DigitalCertificate) CertificateResponse {
	return CertificateResponse{
		ID:                c.ID,
		UserID:            c.UserID,
		ProofSubmissionID: c.SubmissionID,
		Quarter:           c.Quarter,
		Filename:          c.Filename,
		Timestamp:         c.IssuedAt,
		SignatureHash:     c.SignatureHash,
		ContentSnapshot:   json.RawMessage(c.ContentSnapshot),
	}
}

// CertificateVerificationResponse reports tamper detection.
type CertificateVerificationResponse struct {
	CertificateID string `json:"certificate_id"`
	Valid         bool   `json:"valid"`
	Expected      string `json:"expected_hash"`
	Computed      string `json:"computed_hash"`
}

func NewCertificateVerificationResponse(v *service.CertificateVerification) CertificateVerificationResponse {
	return CertificateVerificationResponse{
		CertificateID: v.CertificateID,
		Valid:         v.Valid,
		Expected:      v.Expected,
		Computed:      v.Computed,
	}
}
