// Package document inspects OCR output from identity documents: it classifies
// the document, matches the bearer against registered identity fields and
// extracts the expiry date.
package document

import (
	"strings"

	"github.com/Jlndre/Capstone-eLife/internal/domain"
)

// Classify detects the document type by keyword. Passport wins over driver
// licence, which wins over national ID.
func Classify(text string) domain.DocumentType {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "passport"):
		return domain.DocumentPassport
	case strings.Contains(lower, "driver"), strings.Contains(lower, "dl"):
		return domain.DocumentDriverLicense
	case strings.Contains(lower, "national"), strings.Contains(lower, "nids"):
		return domain.DocumentNationalID
	}
	return domain.DocumentUnknown
}

// MatchIdentifier reports whether the registered identifier for docType
// appears verbatim in the OCR text. Unknown documents never match.
func MatchIdentifier(text string, docType domain.DocumentType, details domain.UserDetails) bool {
	id, ok := details.IdentifierFor(docType)
	if !ok {
		return false
	}
	return strings.Contains(text, id)
}
