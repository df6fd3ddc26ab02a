package schema

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/recordhub/internal/common"
)

// FieldError is a single per-field validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries the full list of field errors for a rejected
// payload. It matches common.ErrValidation under errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == common.ErrValidation
}

// ValidateCreate checks raw input for a create operation: all required
// fields must be present. It returns the normalized storable fields and the
// extracted credential plaintext (empty if the schema has none).
func (s *Schema) ValidateCreate(raw map[string]any) (map[string]any, string, error) {
	return s.validate(raw, true)
}

// ValidateUpdate checks raw input for an update operation. The credential
// field is optional: omitting it keeps the existing secret.
func (s *Schema) ValidateUpdate(raw map[string]any) (map[string]any, string, error) {
	return s.validate(raw, false)
}

func (s *Schema) validate(raw map[string]any, requireCredential bool) (map[string]any, string, error) {
	var errs []FieldError
	fields := make(map[string]any, len(raw))
	var secret string

	for _, f := range s.Fields {
		value, present := raw[f.Name]

		if !present || value == nil {
			required := f.Required
			if f.Name == s.CredentialField && !requireCredential {
				required = false
			}
			if required {
				errs = append(errs, FieldError{Field: f.Name, Message: "is required"})
			}
			continue
		}

		normalized, ferr := normalizeValue(&f, value)
		if ferr != nil {
			errs = append(errs, *ferr)
			continue
		}

		if f.Name == s.CredentialField {
			// Write-only: extracted here, never stored with the record.
			secret, _ = normalized.(string)
			continue
		}
		fields[f.Name] = normalized
	}

	for name := range raw {
		if s.FieldByName(name) != nil {
			continue
		}
		if s.Closed {
			errs = append(errs, FieldError{Field: name, Message: "is not allowed"})
		}
		// Open schema: unknown fields are dropped, not rejected.
	}

	if len(errs) > 0 {
		return nil, "", &ValidationError{Fields: errs}
	}

	return fields, secret, nil
}

func normalizeValue(f *Field, value any) (any, *FieldError) {
	switch f.Type {
	case TypeString:
		str, ok := value.(string)
		if !ok {
			return nil, &FieldError{Field: f.Name, Message: "must be a string"}
		}
		str = strings.TrimSpace(str)
		if len(str) < f.MinLen {
			return nil, &FieldError{Field: f.Name, Message: fmt.Sprintf("must be at least %d characters long", f.MinLen)}
		}
		if f.MaxLen > 0 && len(str) > f.MaxLen {
			return nil, &FieldError{Field: f.Name, Message: fmt.Sprintf("must be at most %d characters long", f.MaxLen)}
		}
		return str, nil
	case TypeNumber:
		// encoding/json decodes all JSON numbers to float64.
		switch n := value.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		default:
			return nil, &FieldError{Field: f.Name, Message: "must be a number"}
		}
	case TypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, &FieldError{Field: f.Name, Message: "must be a boolean"}
		}
		return b, nil
	default:
		return nil, &FieldError{Field: f.Name, Message: "has unsupported type"}
	}
}
