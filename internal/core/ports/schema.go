package ports

import (
	"bytes"
	"encoding/json"

	"github.com/passagelab/classroom-api/internal/core/domain"
)

var jsonNull = []byte("null")

// rawObject holds the undecoded members of a JSON object so that each
// declared field can be checked for presence and type on its own.
type rawObject map[string]json.RawMessage

func decodeObject(data []byte) (rawObject, error) {
	var obj rawObject
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		verr := &domain.ValidationError{}
		verr.AddType("body", "object")
		return nil, verr
	}
	return obj, nil
}

func (o rawObject) lookup(field string, verr *domain.ValidationError) (json.RawMessage, bool) {
	raw, ok := o[field]
	if !ok {
		verr.Add(field, domain.ReasonRequired)
		return nil, false
	}
	return raw, true
}

func (o rawObject) str(field string, verr *domain.ValidationError) string {
	raw, ok := o.lookup(field, verr)
	if !ok {
		return ""
	}
	var s string
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) || json.Unmarshal(raw, &s) != nil {
		verr.AddType(field, "string")
		return ""
	}
	return s
}

// integer accepts JSON integers only; fractions, exponents and quoted numbers
// are rejected.
func (o rawObject) integer(field string, verr *domain.ValidationError) int64 {
	raw, ok := o.lookup(field, verr)
	if !ok {
		return 0
	}
	var n int64
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) || json.Unmarshal(raw, &n) != nil {
		verr.AddType(field, "integer")
		return 0
	}
	return n
}
