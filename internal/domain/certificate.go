package domain

import "time"

// DigitalCertificate is the immutable proof-of-life certificate for one approved submission.
type DigitalCertificate struct {
	ID              string
	UserID          string
	SubmissionID    string
	Quarter         string
	Filename        string
	IssuedAt        time.Time
	ContentSnapshot []byte
	SignatureHash   string
}
