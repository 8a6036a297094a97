// internal/models/records.go
package models

import "fmt"

// StoredAddress is a compound address as the record store returns it.
type StoredAddress struct {
	Street      string `json:"street"`
	City        string `json:"city"`
	StateCode   string `json:"stateCode"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
}

// StoredPerson is the applicant record linked to a booking.
type StoredPerson struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	EntityStatus          string        `json:"entityStatus"`
	Title                 string        `json:"title"`
	RelationName          string        `json:"relationName"`
	RelationType          string        `json:"relationshipToPrimary"`
	Gender                string        `json:"gender"`
	MaritalStatus         string        `json:"maritalStatus"`
	DateOfBirth           string        `json:"dateOfBirth"`
	SpouseName            string        `json:"spouseName"`
	SpouseDOB             string        `json:"spouseDob"`
	AnniversaryDate       string        `json:"anniversaryDate"`
	AadhaarNo             string        `json:"aadhaarNo"`
	PANNo                 string        `json:"panNo"`
	MobileCountryCode     string        `json:"mobileCountryCode"`
	MobileNo              string        `json:"mobileNo"`
	Email                 string        `json:"email"`
	Designation           string        `json:"designation"`
	CompanyName           string        `json:"companyName"`
	OrganizationType      string        `json:"organizationType"`
	OrganizationAddress   StoredAddress `json:"organizationAddress"`
	WorkExperience        string        `json:"workExperience"`
	Industry              string        `json:"industry"`
	AnnualIncome          string        `json:"annualIncome"`
	CurrentResidentStatus string        `json:"currentResidentStatus"`
	CurrentResidentType   string        `json:"currentResidentType"`
	ResidentStatus        string        `json:"residentStatus"`
	CountryOfResidence    string        `json:"countryOfResidence"`
	CurrentAddress        StoredAddress `json:"currentAddress"`
	PermanentAddress      StoredAddress `json:"permanentAddress"`
	SameAsPermanent       bool          `json:"sameAsPermanentAddress"`
}

// StoredApplicant is one booking/applicant junction row from fetchApplicants.
type StoredApplicant struct {
	IsPrimary bool         `json:"isPrimaryApplicant"`
	Applicant StoredPerson `json:"applicant"`
}

// IndexedApplicant is the search document written for each saved applicant.
type IndexedApplicant struct {
	BookingID    string `json:"bookingId"`
	PersistedID  string `json:"persistedId"`
	ApplicantID  string `json:"applicantId"`
	IsPrimary    bool   `json:"isPrimary"`
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobileNumber"`
	PAN          string `json:"pan"`
	City         string `json:"city"`
	State        string `json:"state"`
	SavedAt      string `json:"savedAt"`
}

// PageError is one field-level error reported by the record store.
type PageError struct {
	Message string `json:"message"`
}

// RemoteErrorBody is the structured error body of a failed record store call.
type RemoteErrorBody struct {
	Message    string      `json:"message"`
	PageErrors []PageError `json:"pageErrors"`
}

// RemoteError is returned by record store clients for failed calls. Body is
// nil when the response carried no structured error.
type RemoteError struct {
	Operation  string
	StatusCode int
	Body       *RemoteErrorBody
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if e.Body != nil && e.Body.Message != "" {
		msg = e.Body.Message
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed with status %d: %s", e.Operation, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, msg)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Retryable reports whether the call may succeed if repeated.
func (e *RemoteError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}
