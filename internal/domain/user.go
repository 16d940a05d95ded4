package domain

import "time"

// Role distinguishes pensioners from back-office accounts.
type Role string

const (
	RolePensioner Role = "pensioner"
	RoleAdmin     Role = "admin"
)

// User is the account aggregate for a pension beneficiary.
type User struct {
	ID              string
	PensionerNumber string
	Username        string
	Email           string
	PasswordHash    string
	Role            Role
	TermsAccepted   bool
	CreatedAt       time.Time
	Details         UserDetails
}

// UserDetails holds the registered identity fields documents are checked against.
// Every field is always present; empty strings mean "not registered".
type UserDetails struct {
	FirstName      string
	LastName       string
	DateOfBirth    *time.Time
	TRN            string
	NationalID     string
	PassportNumber string
	ContactNumber  string
	Address        string
}

// FullName joins first and last name.
func (d UserDetails) FullName() string {
	switch {
	case d.FirstName == "":
		return d.LastName
	case d.LastName == "":
		return d.FirstName
	}
	return d.FirstName + " " + d.LastName
}

// IdentifierFor returns the registered identifier matching a document type.
func (d UserDetails) IdentifierFor(docType DocumentType) (string, bool) {
	var id string
	switch docType {
	case DocumentDriverLicense:
		id = d.TRN
	case DocumentNationalID:
		id = d.NationalID
	case DocumentPassport:
		id = d.PassportNumber
	default:
		return "", false
	}
	return id, id != ""
}

// HasIdentity reports whether enough details exist to issue a certificate.
func (d UserDetails) HasIdentity() bool {
	return d.FirstName != "" || d.LastName != ""
}
