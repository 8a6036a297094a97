// Package address implements the shared correspondence/permanent address of a
// booking and the rules that keep the two groups linked.
package address

import (
	"errors"
	"fmt"
	"strconv"

	"applicant-intake/internal/models"
)

var ErrUnknownField = errors.New("UNKNOWN_ADDRESS_FIELD")

const (
	CorrAddress     = "corrAddress"
	CorrCity        = "corrCity"
	CorrState       = "corrState"
	CorrPincode     = "corrPincode"
	CorrCountry     = "corrCountry"
	SameAsPermanent = "sameAsPermanent"
	PermAddress     = "permAddress"
	PermCity        = "permCity"
	PermState       = "permState"
	PermPincode     = "permPincode"
	PermCountry     = "permCountry"
)

// FieldNames lists the address fields in form order.
var FieldNames = []string{
	CorrAddress, CorrCity, CorrState, CorrPincode, CorrCountry,
	SameAsPermanent,
	PermAddress, PermCity, PermState, PermPincode, PermCountry,
}

// IsField reports whether name is an address field.
func IsField(name string) bool {
	for _, f := range FieldNames {
		if f == name {
			return true
		}
	}
	return false
}

// IsCountryField reports whether name is one of the two address country fields.
func IsCountryField(name string) bool {
	return name == CorrCountry || name == PermCountry
}

type Group struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
}

// Model is the address shared by every applicant of a roster.
type Model struct {
	Correspondence  Group `json:"correspondence"`
	Permanent       Group `json:"permanent"`
	SameAsPermanent bool  `json:"sameAsPermanent"`
}

// New returns an empty model with India as the country on both groups.
func New() Model {
	return Model{
		Correspondence: Group{Country: models.DefaultCountry},
		Permanent:      Group{Country: models.DefaultCountry},
	}
}

// Set applies one field edit. While the groups are linked, any correspondence
// edit copies the whole correspondence group over the permanent one. Turning
// the link on copies; turning it off clears the permanent group.
func (m Model) Set(field, value string) (Model, error) {
	out := m

	if field == SameAsPermanent {
		on, err := parseBool(value)
		if err != nil {
			return m, fmt.Errorf("%w: %s=%q", ErrUnknownField, field, value)
		}
		return out.SetSameAsPermanent(on), nil
	}

	if p := out.Correspondence.ref(field, "corr"); p != nil {
		*p = value
		if out.SameAsPermanent {
			out.Permanent = out.Correspondence
		}
		return out, nil
	}

	if p := out.Permanent.ref(field, "perm"); p != nil {
		*p = value
		return out, nil
	}

	return m, fmt.Errorf("%w: %s", ErrUnknownField, field)
}

// SetSameAsPermanent toggles the link between the groups. Linking copies the
// correspondence group over; only unlinking a linked model clears the
// permanent group.
func (m Model) SetSameAsPermanent(on bool) Model {
	out := m
	out.SameAsPermanent = on
	switch {
	case on:
		out.Permanent = out.Correspondence
	case m.SameAsPermanent:
		out.Permanent = Group{}
	}
	return out
}

// Snapshot returns an independent copy for an in-flight save.
func (m Model) Snapshot() Model {
	return m
}

// Fields flattens the model to the eleven named fields.
func (m Model) Fields() map[string]string {
	return map[string]string{
		CorrAddress:     m.Correspondence.Address,
		CorrCity:        m.Correspondence.City,
		CorrState:       m.Correspondence.State,
		CorrPincode:     m.Correspondence.Pincode,
		CorrCountry:     m.Correspondence.Country,
		SameAsPermanent: strconv.FormatBool(m.SameAsPermanent),
		PermAddress:     m.Permanent.Address,
		PermCity:        m.Permanent.City,
		PermState:       m.Permanent.State,
		PermPincode:     m.Permanent.Pincode,
		PermCountry:     m.Permanent.Country,
	}
}

func (g *Group) ref(field, prefix string) *string {
	switch field {
	case prefix + "Address":
		return &g.Address
	case prefix + "City":
		return &g.City
	case prefix + "State":
		return &g.State
	case prefix + "Pincode":
		return &g.Pincode
	case prefix + "Country":
		return &g.Country
	}
	return nil
}

func parseBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
