package server

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"taskapi/internal/validation"
)

// bindChanges reads a partial update body. Keys present with a null value
// are kept so validators can reject them; date fields are parsed as RFC 3339.
func bindChanges(c *gin.Context, dateFields ...string) (map[string]any, error) {
	changes := map[string]any{}
	if err := c.ShouldBindJSON(&changes); err != nil {
		return nil, err
	}
	for _, field := range dateFields {
		raw, ok := changes[field]
		if !ok || raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return nil, &validation.Error{Field: field, Kind: validation.OutOfRange, Message: field + " must be a valid date"}
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, &validation.Error{Field: field, Kind: validation.OutOfRange, Message: field + " must be a valid date"}
		}
		changes[field] = t
	}
	return changes, nil
}

// optionalString remembers whether a create body carried the key at all,
// so an absent key can take its default while null or "" is rejected.
type optionalString struct {
	set   bool
	value *string
}

// UnmarshalJSON marks the key as present and keeps null as a nil value.
func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.set = true
	if string(b) == "null" {
		o.value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.value = &s
	return nil
}

// resolve returns "" for an absent key so the store applies its default.
// A present null or empty value goes through the field's validators.
func (o optionalString) resolve(entity validation.Entity, field string) (string, error) {
	if !o.set {
		return "", nil
	}
	if o.value != nil && *o.value != "" {
		return *o.value, nil
	}
	var v any
	if o.value != nil {
		v = *o.value
	}
	if err := validation.Default().ValidateField(entity, field, v, time.Time{}); err != nil {
		return "", err
	}
	return "", nil
}
