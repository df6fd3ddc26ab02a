// Package schema defines the record schema and the validator that gates
// every store mutation. A schema lists the known fields with their types and
// length bounds, names the login and credential fields, and decides whether
// unknown fields are dropped or rejected.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
)

// Field types accepted by the validator.
const (
	TypeString = "string"
	TypeNumber = "number"
	TypeBool   = "bool"
)

// Field describes a single schema field.
//
// MinLen/MaxLen apply to string fields only; a MaxLen of 0 means unbounded.
// Unique fields are enforced at the service layer with a store lookup.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	MinLen   int    `json:"min_len"`
	MaxLen   int    `json:"max_len"`
	Unique   bool   `json:"unique"`
}

// Schema describes the record collection served by the API.
//
// CredentialField names the write-only secret field: it is validated and then
// extracted, never stored in the record itself. LoginField names the field
// used to look up a record on login. Closed schemas reject unknown fields
// instead of silently dropping them.
type Schema struct {
	Name            string  `json:"name"`
	Closed          bool    `json:"closed"`
	LoginField      string  `json:"login_field"`
	CredentialField string  `json:"credential_field"`
	Fields          []Field `json:"fields"`
}

// Default returns the built-in schema: a "users" collection matching the
// classic register/login shape (name, email, password).
func Default() *Schema {
	return &Schema{
		Name:            "users",
		Closed:          false,
		LoginField:      "email",
		CredentialField: "password",
		Fields: []Field{
			{Name: "name", Type: TypeString, Required: true, MinLen: 2, MaxLen: 100},
			{Name: "email", Type: TypeString, Required: true, MinLen: 3, MaxLen: 254, Unique: true},
			{Name: "password", Type: TypeString, Required: true, MinLen: 8, MaxLen: 72},
		},
	}
}

// Load reads a schema from a JSON file and validates its internal
// consistency.
func Load(path string) (*Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading schema file: %w", err)
	}

	s := &Schema{}
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("error parsing schema file: %w", err)
	}

	if err := s.check(); err != nil {
		return nil, err
	}

	return s, nil
}

// check verifies that the schema references only fields it declares and that
// every field has a known type.
func (s *Schema) check() error {
	if s.Name == "" {
		return fmt.Errorf("schema has no name")
	}
	for _, f := range s.Fields {
		switch f.Type {
		case TypeString, TypeNumber, TypeBool:
		default:
			return fmt.Errorf("field %q has unknown type %q", f.Name, f.Type)
		}
	}
	if s.LoginField != "" && s.FieldByName(s.LoginField) == nil {
		return fmt.Errorf("login field %q is not declared", s.LoginField)
	}
	if s.CredentialField != "" && s.FieldByName(s.CredentialField) == nil {
		return fmt.Errorf("credential field %q is not declared", s.CredentialField)
	}
	return nil
}

// FieldByName returns the declared field with the given name, or nil.
func (s *Schema) FieldByName(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// HasField reports whether name is a declared, storable field. The
// credential field is write-only and therefore not storable.
func (s *Schema) HasField(name string) bool {
	if name == s.CredentialField {
		return false
	}
	return s.FieldByName(name) != nil
}

// UniqueFields returns the names of fields marked unique, excluding the
// credential field.
func (s *Schema) UniqueFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Unique && f.Name != s.CredentialField {
			names = append(names, f.Name)
		}
	}
	return names
}
