package domain

import "time"

// DocumentType enumerates recognised identity documents.
type DocumentType string

const (
	DocumentPassport      DocumentType = "passport"
	DocumentDriverLicense DocumentType = "driver_license"
	DocumentNationalID    DocumentType = "national_id"
	DocumentUnknown       DocumentType = "unknown"
)

// ParseDocumentType maps a caller supplied value onto a known type.
func ParseDocumentType(val string) (DocumentType, bool) {
	switch DocumentType(val) {
	case DocumentPassport, DocumentDriverLicense, DocumentNationalID, DocumentUnknown:
		return DocumentType(val), true
	}
	return "", false
}

// IdentityRecord is the evidence left by a document-stage attempt. Never
// mutated. Only a Verified record clears the user for the live stage.
type IdentityRecord struct {
	ID           string
	UserID       string
	Type         DocumentType
	Verified     bool
	ImageRef     string
	FaceImageRef string
	ExpiryDate   *time.Time
	SubmissionID string
	CreatedAt    time.Time
}
