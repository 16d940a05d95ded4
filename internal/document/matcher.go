package document

import (
	"strings"
	"time"

	"github.com/Jlndre/Capstone-eLife/internal/domain"
)

// Check names used in failure diagnostics.
const (
	CheckName   = "name_match"
	CheckID     = "id_match"
	CheckExpiry = "expiry_valid"
)

// Report is the field-level outcome for one document.
type Report struct {
	DocumentType domain.DocumentType `json:"document_type"`
	NameMatch    bool                `json:"name_match"`
	IDMatch      bool                `json:"id_match"`
	ExpiryDate   *time.Time          `json:"expiry_date,omitempty"`
	ExpiryValid  bool                `json:"expiry_valid"`
}

// Passed requires all three field checks.
func (r Report) Passed() bool {
	return r.NameMatch && r.IDMatch && r.ExpiryValid
}

// FailedChecks lists the checks that did not pass, in a fixed order.
func (r Report) FailedChecks() []string {
	var failed []string
	if !r.NameMatch {
		failed = append(failed, CheckName)
	}
	if !r.IDMatch {
		failed = append(failed, CheckID)
	}
	if !r.ExpiryValid {
		failed = append(failed, CheckExpiry)
	}
	return failed
}

// Matcher evaluates OCR fragments against a user's registered details.
type Matcher struct {
	nameThreshold int
	now           func() time.Time
}

// NewMatcher builds a matcher. now may be nil to use the wall clock.
func NewMatcher(nameThreshold int, now func() time.Time) *Matcher {
	if now == nil {
		now = time.Now
	}
	return &Matcher{nameThreshold: nameThreshold, now: now}
}

// Evaluate classifies the document (unless override is set) and runs the
// name, identifier and expiry checks.
func (m *Matcher) Evaluate(fragments []string, details domain.UserDetails, override domain.DocumentType) Report {
	text := strings.Join(fragments, " ")

	docType := override
	if docType == "" {
		docType = Classify(text)
	}

	expiry := ExtractExpiry(text, m.now())
	return Report{
		DocumentType: docType,
		NameMatch:    MatchName(text, details.FirstName, details.LastName, m.nameThreshold),
		IDMatch:      MatchIdentifier(text, docType, details),
		ExpiryDate:   expiry,
		ExpiryValid:  expiry != nil && expiry.After(m.now()),
	}
}
