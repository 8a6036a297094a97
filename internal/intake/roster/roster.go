// Package roster manages the applicants of one booking: a single primary plus
// any number of co-applicants. A Roster is a value; every operation returns a
// new Roster and leaves the receiver untouched.
package roster

import (
	"encoding/json"
	"errors"
	"fmt"

	"applicant-intake/internal/models"
)

var (
	ErrPrimaryExists     = errors.New("PRIMARY_EXISTS")
	ErrPrimaryRemoval    = errors.New("PRIMARY_REMOVAL_NOT_ALLOWED")
	ErrApplicantNotFound = errors.New("APPLICANT_NOT_FOUND")
	ErrUnknownField      = models.ErrUnknownField
)

const idPrefix = "applicant-"

// Roster holds the primary applicant (nil until seeded) and the co-applicants
// in roster order.
type Roster struct {
	primary      *models.Applicant
	coApplicants []models.Applicant
	open         string
	counter      int
}

// New returns an unseeded roster. It has no primary until EnsurePrimary or
// AddApplicant(true) is called.
func New() Roster {
	return Roster{}
}

// NewSeeded returns a roster holding one fresh primary applicant.
func NewSeeded() Roster {
	r, _, _ := New().AddApplicant(true)
	return r
}

// FromStored builds a roster from applicants already persisted elsewhere. The
// id counter continues after the number of loaded applicants.
func FromStored(primary *models.Applicant, coApplicants []models.Applicant) Roster {
	r := Roster{counter: len(coApplicants)}
	if primary != nil {
		p := *primary
		p.IsPrimary = true
		r.primary = &p
		r.counter++
	}
	r.coApplicants = make([]models.Applicant, len(coApplicants))
	for i, a := range coApplicants {
		a.IsPrimary = false
		r.coApplicants[i] = a
	}
	r = r.Relabel()
	if first, ok := r.At(0); ok {
		r.open = first.ID
	}
	return r
}

func (r Roster) clone() Roster {
	out := Roster{open: r.open, counter: r.counter}
	if r.primary != nil {
		p := *r.primary
		out.primary = &p
	}
	out.coApplicants = append([]models.Applicant(nil), r.coApplicants...)
	return out
}

// Seeded reports whether the roster has its primary applicant.
func (r Roster) Seeded() bool {
	return r.primary != nil
}

// EnsurePrimary seeds an unseeded roster with a primary applicant. A seeded
// roster is returned unchanged.
func (r Roster) EnsurePrimary() Roster {
	if r.Seeded() {
		return r
	}
	out, _, _ := r.AddApplicant(true)
	return out
}

// AddApplicant allocates the next local id, appends a defaulted applicant and
// makes it the open entry. Only one primary may ever be added.
func (r Roster) AddApplicant(isPrimary bool) (Roster, string, error) {
	if isPrimary && r.primary != nil {
		return r, "", ErrPrimaryExists
	}

	out := r.clone()
	out.counter++
	id := fmt.Sprintf("%s%d", idPrefix, out.counter)
	a := models.NewApplicant(id, isPrimary)

	if isPrimary {
		out.primary = &a
	} else {
		out.coApplicants = append(out.coApplicants, a)
	}
	out.open = id
	return out.Relabel(), id, nil
}

// RemoveApplicant drops a co-applicant. If it was open, the first remaining
// applicant becomes open.
func (r Roster) RemoveApplicant(id string) (Roster, error) {
	if r.primary != nil && r.primary.ID == id {
		return r, ErrPrimaryRemoval
	}

	idx := r.coIndex(id)
	if idx < 0 {
		return r, fmt.Errorf("%w: %s", ErrApplicantNotFound, id)
	}

	out := r.clone()
	out.coApplicants = append(out.coApplicants[:idx], out.coApplicants[idx+1:]...)
	if out.open == id {
		out.open = ""
		if first, ok := out.At(0); ok {
			out.open = first.ID
		}
	}
	return out.Relabel(), nil
}

// UpdateField sets one editable field on the matching applicant.
func (r Roster) UpdateField(id, field, value string) (Roster, error) {
	return r.Update(id, func(a *models.Applicant) error {
		if err := a.Set(field, value); err != nil {
			return fmt.Errorf("%w: %s", err, field)
		}
		return nil
	})
}

// Update applies fn to a copy of the matching applicant. The roster is only
// replaced when fn succeeds.
func (r Roster) Update(id string, fn func(a *models.Applicant) error) (Roster, error) {
	out := r.clone()

	var target *models.Applicant
	if out.primary != nil && out.primary.ID == id {
		target = out.primary
	} else if idx := out.coIndex(id); idx >= 0 {
		target = &out.coApplicants[idx]
	}
	if target == nil {
		return r, fmt.Errorf("%w: %s", ErrApplicantNotFound, id)
	}

	if err := fn(target); err != nil {
		return r, err
	}
	return out, nil
}

// Relabel names the primary "Primary Applicant" and numbers co-applicants
// from 1 in roster order.
func (r Roster) Relabel() Roster {
	out := r.clone()
	if out.primary != nil {
		out.primary.Label = models.PrimaryLabel
	}
	for i := range out.coApplicants {
		out.coApplicants[i].Label = fmt.Sprintf(models.CoApplicantLabelFmt, i+1)
	}
	return out
}

// Applicants returns all applicants, primary first.
func (r Roster) Applicants() []models.Applicant {
	out := make([]models.Applicant, 0, r.Len())
	if r.primary != nil {
		out = append(out, *r.primary)
	}
	return append(out, r.coApplicants...)
}

// Primary returns the primary applicant if the roster is seeded.
func (r Roster) Primary() (models.Applicant, bool) {
	if r.primary == nil {
		return models.Applicant{}, false
	}
	return *r.primary, true
}

// CoApplicants returns a copy of the co-applicants.
func (r Roster) CoApplicants() []models.Applicant {
	return append([]models.Applicant(nil), r.coApplicants...)
}

// At returns the applicant at position i in roster order.
func (r Roster) At(i int) (models.Applicant, bool) {
	if i < 0 || i >= r.Len() {
		return models.Applicant{}, false
	}
	if r.primary != nil {
		if i == 0 {
			return *r.primary, true
		}
		i--
	}
	return r.coApplicants[i], true
}

// Find looks an applicant up by id.
func (r Roster) Find(id string) (models.Applicant, bool) {
	if r.primary != nil && r.primary.ID == id {
		return *r.primary, true
	}
	if idx := r.coIndex(id); idx >= 0 {
		return r.coApplicants[idx], true
	}
	return models.Applicant{}, false
}

func (r Roster) Len() int {
	n := len(r.coApplicants)
	if r.primary != nil {
		n++
	}
	return n
}

// Open returns the id of the expanded applicant, or "".
func (r Roster) Open() string {
	return r.open
}

// SetOpen makes id the single open applicant.
func (r Roster) SetOpen(id string) (Roster, error) {
	if _, ok := r.Find(id); !ok {
		return r, fmt.Errorf("%w: %s", ErrApplicantNotFound, id)
	}
	out := r.clone()
	out.open = id
	return out, nil
}

func (r Roster) coIndex(id string) int {
	for i := range r.coApplicants {
		if r.coApplicants[i].ID == id {
			return i
		}
	}
	return -1
}

type rosterJSON struct {
	Primary      *models.Applicant  `json:"primary"`
	CoApplicants []models.Applicant `json:"coApplicants"`
	Open         string             `json:"open"`
	Counter      int                `json:"counter"`
}

func (r Roster) MarshalJSON() ([]byte, error) {
	co := r.coApplicants
	if co == nil {
		co = []models.Applicant{}
	}
	return json.Marshal(rosterJSON{
		Primary:      r.primary,
		CoApplicants: co,
		Open:         r.open,
		Counter:      r.counter,
	})
}

func (r *Roster) UnmarshalJSON(data []byte) error {
	var raw rosterJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Primary != nil && !raw.Primary.IsPrimary {
		return fmt.Errorf("roster primary %s is not flagged primary", raw.Primary.ID)
	}
	for _, a := range raw.CoApplicants {
		if a.IsPrimary {
			return fmt.Errorf("%w: co-applicant %s flagged primary", ErrPrimaryExists, a.ID)
		}
	}
	*r = Roster{
		primary:      raw.Primary,
		coApplicants: raw.CoApplicants,
		open:         raw.Open,
		counter:      raw.Counter,
	}
	return nil
}
