// internal/models/applicant.go
package models

import (
	"errors"
	"strings"
)

// ErrUnknownField is returned for field names that are not editable applicant fields.
var ErrUnknownField = errors.New("UNKNOWN_FIELD")

const (
	NoneValue           = "None"
	DefaultCountry      = "IN"
	DefaultMobileCode   = "+91"
	PrimaryLabel        = "Primary Applicant"
	CoApplicantLabelFmt = "Co-Applicant %d"
)

// Applicant is one person's intake record. Every field is a plain string so an
// unset value is either the "None" sentinel or "", never absent.
type Applicant struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	IsPrimary bool   `json:"isPrimary"`

	EntityStatus    string `json:"entityStatus"`
	Title           string `json:"title"`
	FirstName       string `json:"firstName"`
	MiddleName      string `json:"middleName"`
	LastName        string `json:"lastName"`
	FullName        string `json:"fullName"`
	RelationName    string `json:"relationName"`
	RelationType    string `json:"relationType"`
	Gender          string `json:"gender"`
	MaritalStatus   string `json:"maritalStatus"`
	DateOfBirth     string `json:"dateOfBirth"`
	SpouseName      string `json:"spouseName"`
	SpouseDOB       string `json:"spouseDob"`
	AnniversaryDate string `json:"anniversaryDate"`
	Aadhar          string `json:"aadhar"`
	PAN             string `json:"pan"`

	MobileCountryCode string `json:"mobileCountryCode"`
	MobileNumber      string `json:"mobileNumber"`
	Email             string `json:"email"`

	Designation         string `json:"designation"`
	OrganizationName    string `json:"organizationName"`
	OrganizationType    string `json:"organizationType"`
	OrganizationAddress string `json:"organizationAddress"`
	City                string `json:"city"`
	State               string `json:"state"`
	Pincode             string `json:"pincode"`
	Country             string `json:"country"`
	WorkExperience      string `json:"workExperience"`
	IndustrySector      string `json:"industrySector"`
	AnnualIncome        string `json:"annualIncome"`

	CurrentResidentStatus string `json:"currentResidentStatus"`
	CurrentResidentType   string `json:"currentResidentType"`
	ResidentStatus        string `json:"residentStatus"`
	CountryOfResidence    string `json:"countryOfResidence"`
}

// Editable applicant field names in form order.
const (
	FieldEntityStatus          = "entityStatus"
	FieldTitle                 = "title"
	FieldFirstName             = "firstName"
	FieldMiddleName            = "middleName"
	FieldLastName              = "lastName"
	FieldRelationName          = "relationName"
	FieldRelationType          = "relationType"
	FieldGender                = "gender"
	FieldMaritalStatus         = "maritalStatus"
	FieldDateOfBirth           = "dateOfBirth"
	FieldSpouseName            = "spouseName"
	FieldSpouseDOB             = "spouseDob"
	FieldAnniversaryDate       = "anniversaryDate"
	FieldAadhar                = "aadhar"
	FieldPAN                   = "pan"
	FieldMobileCountryCode     = "mobileCountryCode"
	FieldMobileNumber          = "mobileNumber"
	FieldEmail                 = "email"
	FieldDesignation           = "designation"
	FieldOrganizationName      = "organizationName"
	FieldOrganizationType      = "organizationType"
	FieldOrganizationAddress   = "organizationAddress"
	FieldCity                  = "city"
	FieldState                 = "state"
	FieldPincode               = "pincode"
	FieldCountry               = "country"
	FieldWorkExperience        = "workExperience"
	FieldIndustrySector        = "industrySector"
	FieldAnnualIncome          = "annualIncome"
	FieldCurrentResidentStatus = "currentResidentStatus"
	FieldCurrentResidentType   = "currentResidentType"
	FieldResidentStatus        = "residentStatus"
	FieldCountryOfResidence    = "countryOfResidence"

	// read-only
	FieldID        = "id"
	FieldLabel     = "label"
	FieldIsPrimary = "isPrimary"
	FieldFullName  = "fullName"
)

var editableFields = []string{
	FieldEntityStatus, FieldTitle, FieldFirstName, FieldMiddleName, FieldLastName,
	FieldRelationName, FieldRelationType, FieldGender, FieldMaritalStatus, FieldDateOfBirth,
	FieldSpouseName, FieldSpouseDOB, FieldAnniversaryDate, FieldAadhar, FieldPAN,
	FieldMobileCountryCode, FieldMobileNumber, FieldEmail,
	FieldDesignation, FieldOrganizationName, FieldOrganizationType, FieldOrganizationAddress,
	FieldCity, FieldState, FieldPincode, FieldCountry, FieldWorkExperience, FieldIndustrySector,
	FieldAnnualIncome,
	FieldCurrentResidentStatus, FieldCurrentResidentType, FieldResidentStatus, FieldCountryOfResidence,
}

// EditableFields returns the editable field names in form order.
func EditableFields() []string {
	out := make([]string, len(editableFields))
	copy(out, editableFields)
	return out
}

// IsEditableField reports whether name can be passed to Set.
func IsEditableField(name string) bool {
	return (&Applicant{}).ref(name) != nil
}

// NewApplicant builds an applicant with sentinel defaults.
func NewApplicant(id string, isPrimary bool) Applicant {
	return Applicant{
		ID:                    id,
		IsPrimary:             isPrimary,
		EntityStatus:          NoneValue,
		Title:                 NoneValue,
		RelationType:          NoneValue,
		Gender:                NoneValue,
		MaritalStatus:         NoneValue,
		MobileCountryCode:     DefaultMobileCode,
		Country:               DefaultCountry,
		WorkExperience:        NoneValue,
		CurrentResidentStatus: NoneValue,
		CurrentResidentType:   NoneValue,
	}
}

func (a *Applicant) ref(field string) *string {
	switch field {
	case FieldEntityStatus:
		return &a.EntityStatus
	case FieldTitle:
		return &a.Title
	case FieldFirstName:
		return &a.FirstName
	case FieldMiddleName:
		return &a.MiddleName
	case FieldLastName:
		return &a.LastName
	case FieldRelationName:
		return &a.RelationName
	case FieldRelationType:
		return &a.RelationType
	case FieldGender:
		return &a.Gender
	case FieldMaritalStatus:
		return &a.MaritalStatus
	case FieldDateOfBirth:
		return &a.DateOfBirth
	case FieldSpouseName:
		return &a.SpouseName
	case FieldSpouseDOB:
		return &a.SpouseDOB
	case FieldAnniversaryDate:
		return &a.AnniversaryDate
	case FieldAadhar:
		return &a.Aadhar
	case FieldPAN:
		return &a.PAN
	case FieldMobileCountryCode:
		return &a.MobileCountryCode
	case FieldMobileNumber:
		return &a.MobileNumber
	case FieldEmail:
		return &a.Email
	case FieldDesignation:
		return &a.Designation
	case FieldOrganizationName:
		return &a.OrganizationName
	case FieldOrganizationType:
		return &a.OrganizationType
	case FieldOrganizationAddress:
		return &a.OrganizationAddress
	case FieldCity:
		return &a.City
	case FieldState:
		return &a.State
	case FieldPincode:
		return &a.Pincode
	case FieldCountry:
		return &a.Country
	case FieldWorkExperience:
		return &a.WorkExperience
	case FieldIndustrySector:
		return &a.IndustrySector
	case FieldAnnualIncome:
		return &a.AnnualIncome
	case FieldCurrentResidentStatus:
		return &a.CurrentResidentStatus
	case FieldCurrentResidentType:
		return &a.CurrentResidentType
	case FieldResidentStatus:
		return &a.ResidentStatus
	case FieldCountryOfResidence:
		return &a.CountryOfResidence
	}
	return nil
}

// Get returns the value of an editable field or fullName.
func (a Applicant) Get(field string) (string, bool) {
	if field == FieldFullName {
		return a.FullName, true
	}
	p := a.ref(field)
	if p == nil {
		return "", false
	}
	return *p, true
}

// Set assigns one editable field. PAN is uppercased and a change to any name
// component recomputes FullName.
func (a *Applicant) Set(field, value string) error {
	p := a.ref(field)
	if p == nil {
		return ErrUnknownField
	}
	if field == FieldPAN {
		value = strings.ToUpper(value)
	}
	*p = value

	switch field {
	case FieldFirstName, FieldMiddleName, FieldLastName:
		a.FullName = ComposeFullName(a.FirstName, a.MiddleName, a.LastName)
	}
	return nil
}

// ComposeFullName joins the non-empty name parts with single spaces.
func ComposeFullName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// Fields flattens the applicant into field name -> value, including the
// read-only identity fields. isPrimary is rendered as "true"/"false".
func (a Applicant) Fields() map[string]string {
	out := make(map[string]string, len(editableFields)+4)
	for _, f := range editableFields {
		out[f] = *a.ref(f)
	}
	out[FieldID] = a.ID
	out[FieldLabel] = a.Label
	out[FieldFullName] = a.FullName
	if a.IsPrimary {
		out[FieldIsPrimary] = "true"
	} else {
		out[FieldIsPrimary] = "false"
	}
	return out
}
