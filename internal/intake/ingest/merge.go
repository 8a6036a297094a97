package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"

	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/common/metrics"
	"applicant-intake/internal/intake/address"
	"applicant-intake/internal/intake/catalog"
	"applicant-intake/internal/intake/roster"
	"applicant-intake/internal/models"
)

// Payload groups in flatten order. A key in a later group overrides the same
// key in an earlier one.
var PayloadGroups = []string{
	"generalDetails",
	"contactDetails",
	"professionalDetails",
	"residentStatus",
	"addressForCorrespondence",
	"permanentAddress",
}

// Payload is one applicant's data from the assistant, keyed by group name.
type Payload map[string]json.RawMessage

// Drop reasons.
const (
	DropNotObject    = "group-not-object"
	DropNonScalar    = "non-scalar"
	DropUnknownField = "unknown-field"
	DropInvalidValue = "invalid-value"
)

type DroppedField struct {
	Position int    `json:"position"`
	Key      string `json:"key"`
	Reason   string `json:"reason"`
}

// MergeResult is the roster and address after a merge plus what happened.
type MergeResult struct {
	Roster   roster.Roster  `json:"-"`
	Address  address.Model  `json:"-"`
	Appended []string       `json:"appended"`
	Applied  int            `json:"applied"`
	Dropped  []DroppedField `json:"dropped,omitempty"`
	Skipped  string         `json:"skipped,omitempty"`
}

// Merger applies assistant batches and OCR results.
type Merger struct {
	log logger.Logger
}

func NewMerger(log logger.Logger) *Merger {
	return &Merger{log: log.WithFields(map[string]interface{}{"component": "ingest-merger"})}
}

type flatEntry struct {
	key   string
	value interface{}
}

// MergeAssistant applies one batch of assistant payloads. Payload i lands on
// the applicant at roster position i; missing positions are appended as
// co-applicants. Input that cannot be used is logged and dropped, so the
// result is always usable.
func (m *Merger) MergeAssistant(r roster.Roster, addr address.Model, data json.RawMessage) MergeResult {
	res := MergeResult{Roster: r, Address: addr, Appended: []string{}}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		res.Skipped = "data is not a list"
		m.log.Warn("assistant data ignored", map[string]interface{}{"reason": res.Skipped})
		return res
	}

	var payloads []Payload
	if err := json.Unmarshal(trimmed, &payloads); err != nil {
		res.Skipped = "data is not a list of objects"
		m.log.Warn("assistant data ignored", map[string]interface{}{
			"reason": res.Skipped,
			"error":  err.Error(),
		})
		return res
	}

	for i, p := range payloads {
		for res.Roster.Len() < i+1 {
			// only a second primary is refused
			next, id, _ := res.Roster.AddApplicant(false)
			res.Roster = next
			res.Appended = append(res.Appended, id)
		}
		target, _ := res.Roster.At(i)

		entries, dropped := flatten(i, p)
		res.Dropped = append(res.Dropped, dropped...)

		for _, e := range entries {
			if reason := m.apply(&res, target.ID, e); reason != "" {
				res.Dropped = append(res.Dropped, DroppedField{Position: i, Key: e.key, Reason: reason})
				continue
			}
			res.Applied++
		}
	}

	for _, d := range res.Dropped {
		metrics.IngestedFieldsDropped.WithLabelValues("assistant", d.Reason).Inc()
		m.log.Debug("assistant field dropped", map[string]interface{}{
			"position": d.Position,
			"key":      d.Key,
			"reason":   d.Reason,
		})
	}
	m.log.Info("assistant batch merged", map[string]interface{}{
		"payloads": len(payloads),
		"appended": len(res.Appended),
		"applied":  res.Applied,
		"dropped":  len(res.Dropped),
	})
	return res
}

func (m *Merger) apply(res *MergeResult, applicantID string, e flatEntry) string {
	value, ok := scalarString(e.value)
	if !ok {
		return DropNonScalar
	}

	if address.IsField(e.key) {
		if address.IsCountryField(e.key) {
			value = catalog.CountryCode(value)
		}
		next, err := res.Address.Set(e.key, value)
		if err != nil {
			return DropInvalidValue
		}
		res.Address = next
		return ""
	}

	field := e.key
	if strings.Contains(strings.ToLower(e.key), "country") {
		field = models.FieldCountry
		value = catalog.CountryCode(value)
	}

	next, err := res.Roster.UpdateField(applicantID, field, value)
	switch {
	case errors.Is(err, roster.ErrUnknownField):
		return DropUnknownField
	case err != nil:
		return DropInvalidValue
	}
	res.Roster = next
	return ""
}

// flatten merges the payload groups into one ordered key list. A key keeps the
// position where it first appeared and takes the value from the last group
// that has it. Keys inside a group are visited in canonical field order.
func flatten(position int, p Payload) ([]flatEntry, []DroppedField) {
	var (
		entries []flatEntry
		dropped []DroppedField
		index   = map[string]int{}
	)

	for _, group := range PayloadGroups {
		raw, ok := p[group]
		if !ok || isNull(raw) {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var fields map[string]interface{}
		if err := dec.Decode(&fields); err != nil {
			dropped = append(dropped, DroppedField{Position: position, Key: group, Reason: DropNotObject})
			continue
		}

		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sortCanonical(keys)

		for _, k := range keys {
			if at, seen := index[k]; seen {
				entries[at].value = fields[k]
				continue
			}
			index[k] = len(entries)
			entries = append(entries, flatEntry{key: k, value: fields[k]})
		}
	}
	return entries, dropped
}

var canonicalRank = func() map[string]int {
	rank := map[string]int{}
	for i, f := range models.EditableFields() {
		rank[f] = i
	}
	offset := len(rank)
	for i, f := range address.FieldNames {
		rank[f] = offset + i
	}
	return rank
}()

func sortCanonical(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		ri, iKnown := canonicalRank[keys[i]]
		rj, jKnown := canonicalRank[keys[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		default:
			return keys[i] < keys[j]
		}
	})
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// scalarString renders a decoded JSON scalar. Objects and arrays are refused.
func scalarString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		s := t.String()
		if strings.ContainsAny(s, "eE") {
			if f, err := t.Float64(); err == nil {
				return strconv.FormatFloat(f, 'f', -1, 64), true
			}
		}
		return s, true
	}
	return "", false
}
