package persist

import (
	"strings"

	"applicant-intake/internal/intake/address"
	"applicant-intake/internal/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	MsgFirstNameRequired = "First Name is required"
	MsgLastNameRequired  = "Last Name is required"
)

// ValidateApplicant returns the messages for everything blocking a save.
func ValidateApplicant(a models.Applicant) []string {
	var msgs []string
	rules := []struct {
		value string
		msg   string
	}{
		{a.FirstName, MsgFirstNameRequired},
		{a.LastName, MsgLastNameRequired},
	}
	for _, r := range rules {
		if err := validation.Validate(strings.TrimSpace(r.value), validation.Required.Error(r.msg)); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

// BuildPayload merges an applicant with the address snapshot into the create
// request body. fullName is derived and never sent.
func BuildPayload(a models.Applicant, addr address.Model) map[string]interface{} {
	payload := make(map[string]interface{}, len(models.EditableFields())+len(address.FieldNames)+3)
	for k, v := range a.Fields() {
		payload[k] = v
	}
	delete(payload, models.FieldFullName)
	payload[models.FieldIsPrimary] = a.IsPrimary

	for k, v := range addr.Fields() {
		payload[k] = v
	}
	payload[address.SameAsPermanent] = addr.SameAsPermanent
	return payload
}
