// Package session holds the per-booking intake state between calls and
// rebuilds it from the record store.
package session

import (
	"fmt"
	"strings"
	"time"

	"applicant-intake/internal/intake/address"
	"applicant-intake/internal/intake/persist"
	"applicant-intake/internal/intake/roster"
	"applicant-intake/internal/intake/wizard"
	"applicant-intake/internal/models"
)

// Session is everything the intake remembers for one booking.
type Session struct {
	BookingID       string             `json:"bookingId"`
	Roster          roster.Roster      `json:"roster"`
	Address         address.Model      `json:"address"`
	Wizard          wizard.State       `json:"wizard"`
	Files           models.FileBuckets `json:"files"`
	SelectedDocType string             `json:"selectedDocType"`
	BookingEmail    string             `json:"bookingEmail,omitempty"`
	// PersistedIDs maps local applicant ids to record store ids for the
	// applicants that are already saved.
	PersistedIDs map[string]string `json:"persistedIds,omitempty"`
	LastSave     *persist.Report   `json:"lastSave,omitempty"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// New returns a fresh session: a seeded roster and the default address.
func New(bookingID string) Session {
	return Session{
		BookingID:       bookingID,
		Roster:          roster.NewSeeded(),
		Address:         address.New(),
		Wizard:          wizard.New(),
		Files:           models.FileBuckets{},
		SelectedDocType: models.DefaultOtherDocType,
		PersistedIDs:    map[string]string{},
	}
}

// NewUnseeded returns a fresh session whose roster has no primary yet. It is
// the shape an assistant message finds when it reaches a booking before the
// booking is loaded.
func NewUnseeded(bookingID string) Session {
	s := New(bookingID)
	s.Roster = roster.New()
	return s
}

// Hydrated is what Hydrate recovers from the stored rows.
type Hydrated struct {
	Roster       roster.Roster
	Address      address.Model
	PersistedIDs map[string]string
}

// Hydrate rebuilds the roster and address from fetchApplicants rows. The
// first primary row becomes the primary; any further primary rows are kept
// as co-applicants. With no rows the roster is seeded with one primary.
func Hydrate(rows []models.StoredApplicant) Hydrated {
	h := Hydrated{Address: address.New(), PersistedIDs: map[string]string{}}
	if len(rows) == 0 {
		h.Roster = roster.NewSeeded()
		return h
	}

	primaryIdx := -1
	for i, row := range rows {
		if row.IsPrimary {
			primaryIdx = i
			break
		}
	}

	// the primary takes applicant-1; co-applicants follow in row order
	ordered := make([]models.StoredApplicant, 0, len(rows))
	if primaryIdx >= 0 {
		ordered = append(ordered, rows[primaryIdx])
	}
	for i, row := range rows {
		if i != primaryIdx {
			ordered = append(ordered, row)
		}
	}

	var (
		primary *models.Applicant
		co      []models.Applicant
	)
	for i, row := range ordered {
		id := fmt.Sprintf("applicant-%d", i+1)
		isPrimary := i == 0 && primaryIdx >= 0
		a := fromStored(id, isPrimary, row.Applicant)
		if row.Applicant.ID != "" {
			h.PersistedIDs[id] = row.Applicant.ID
		}
		if isPrimary {
			primary = &a
		} else {
			co = append(co, a)
		}
	}

	h.Roster = roster.FromStored(primary, co).EnsurePrimary()
	h.Address = addressFromStored(rows[0].Applicant)
	return h
}

// Adopt folds a roster filled before hydration into h. Without stored rows the
// early roster and address are kept and given their primary. Otherwise the
// early applicants follow the stored ones as co-applicants and the stored
// address wins.
func Adopt(h Hydrated, early roster.Roster, addr address.Model, stored bool) Hydrated {
	if !stored {
		return Hydrated{Roster: early.EnsurePrimary(), Address: addr, PersistedIDs: h.PersistedIDs}
	}

	r := h.Roster
	for _, a := range early.Applicants() {
		next, id, _ := r.AddApplicant(false)
		next, err := next.Update(id, func(dst *models.Applicant) error {
			label := dst.Label
			*dst = a
			dst.ID, dst.Label, dst.IsPrimary = id, label, false
			return nil
		})
		if err != nil {
			continue
		}
		r = next
	}
	if open, err := r.SetOpen(h.Roster.Open()); err == nil {
		r = open
	}
	h.Roster = r
	return h
}

// SplitName breaks a stored full name into first, middle and last. One word
// is a first name, two are first and last, and with three or more the inner
// words form the middle name.
func SplitName(name string) (first, middle, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", "", ""
	case 1:
		return parts[0], "", ""
	case 2:
		return parts[0], "", parts[1]
	default:
		return parts[0], strings.Join(parts[1:len(parts)-1], " "), parts[len(parts)-1]
	}
}

// dateOnly trims a stored timestamp to YYYY-MM-DD.
func dateOnly(v string) string {
	if len(v) > 10 {
		return v[:10]
	}
	return v
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// fromStored maps a stored person onto a defaulted applicant. Blank picklist
// values fall back to "None" the same way a freshly added applicant does.
func fromStored(id string, isPrimary bool, p models.StoredPerson) models.Applicant {
	a := models.NewApplicant(id, isPrimary)
	first, middle, last := SplitName(p.Name)

	a.EntityStatus = orDefault(p.EntityStatus, a.EntityStatus)
	a.Title = orDefault(p.Title, a.Title)
	a.FirstName = first
	a.MiddleName = middle
	a.LastName = last
	a.FullName = models.ComposeFullName(first, middle, last)
	a.RelationName = p.RelationName
	a.RelationType = orDefault(p.RelationType, a.RelationType)
	a.Gender = orDefault(p.Gender, a.Gender)
	a.MaritalStatus = orDefault(p.MaritalStatus, a.MaritalStatus)
	a.DateOfBirth = dateOnly(p.DateOfBirth)
	a.SpouseName = p.SpouseName
	a.SpouseDOB = dateOnly(p.SpouseDOB)
	a.AnniversaryDate = dateOnly(p.AnniversaryDate)
	a.Aadhar = p.AadhaarNo
	a.PAN = strings.ToUpper(p.PANNo)
	a.MobileCountryCode = orDefault(p.MobileCountryCode, a.MobileCountryCode)
	a.MobileNumber = p.MobileNo
	a.Email = p.Email

	a.Designation = p.Designation
	a.OrganizationName = p.CompanyName
	a.OrganizationType = orDefault(p.OrganizationType, models.NoneValue)
	a.OrganizationAddress = p.OrganizationAddress.Street
	a.City = p.OrganizationAddress.City
	a.State = p.OrganizationAddress.StateCode
	a.Pincode = p.OrganizationAddress.PostalCode
	a.Country = orDefault(p.OrganizationAddress.CountryCode, a.Country)
	a.WorkExperience = orDefault(p.WorkExperience, a.WorkExperience)
	a.IndustrySector = orDefault(p.Industry, models.NoneValue)
	a.AnnualIncome = orDefault(p.AnnualIncome, models.NoneValue)

	a.CurrentResidentStatus = orDefault(p.CurrentResidentStatus, a.CurrentResidentStatus)
	a.CurrentResidentType = orDefault(p.CurrentResidentType, a.CurrentResidentType)
	a.ResidentStatus = orDefault(p.ResidentStatus, models.NoneValue)
	a.CountryOfResidence = p.CountryOfResidence
	return a
}

// addressFromStored reads the shared address off a stored person. The link
// flag always starts off so both groups show what was stored.
func addressFromStored(p models.StoredPerson) address.Model {
	return address.Model{
		Correspondence:  groupFromStored(p.CurrentAddress),
		Permanent:       groupFromStored(p.PermanentAddress),
		SameAsPermanent: false,
	}
}

func groupFromStored(s models.StoredAddress) address.Group {
	return address.Group{
		Address: s.Street,
		City:    s.City,
		State:   s.StateCode,
		Pincode: s.PostalCode,
		Country: orDefault(s.CountryCode, models.DefaultCountry),
	}
}
