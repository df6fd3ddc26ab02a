package schema

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/recordhub/internal/common"
)

func fieldMessages(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	m := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		m[f.Field] = f.Message
	}
	return m
}

func TestValidateCreate_Success(t *testing.T) {
	t.Parallel()
	s := Default()

	fields, secret, err := s.ValidateCreate(map[string]any{
		"name":     "John",
		"email":    "john@example.com",
		"password": "secret123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields["name"] != "John" || fields["email"] != "john@example.com" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if _, ok := fields["password"]; ok {
		t.Fatalf("credential field must not appear in storable fields")
	}
	if secret != "secret123" {
		t.Fatalf("expected extracted secret, got %q", secret)
	}
}

func TestValidateCreate_MissingRequired(t *testing.T) {
	t.Parallel()
	s := Default()

	_, _, err := s.ValidateCreate(map[string]any{"name": "John"})
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected common.ErrValidation, got %v", err)
	}

	msgs := fieldMessages(t, err)
	if msgs["email"] == "" || msgs["password"] == "" {
		t.Fatalf("expected errors for email and password, got %v", msgs)
	}
}

func TestValidateCreate_LengthBounds(t *testing.T) {
	t.Parallel()
	s := Default()

	_, _, err := s.ValidateCreate(map[string]any{
		"name":     "J",
		"email":    "john@example.com",
		"password": "short",
	})
	msgs := fieldMessages(t, err)
	if msgs["name"] != "must be at least 2 characters long" {
		t.Fatalf("unexpected name message: %q", msgs["name"])
	}
	if msgs["password"] != "must be at least 8 characters long" {
		t.Fatalf("unexpected password message: %q", msgs["password"])
	}
}

func TestValidateCreate_WrongTypes(t *testing.T) {
	t.Parallel()
	s := &Schema{
		Name: "things",
		Fields: []Field{
			{Name: "title", Type: TypeString, Required: true},
			{Name: "count", Type: TypeNumber},
			{Name: "done", Type: TypeBool},
		},
	}

	_, _, err := s.ValidateCreate(map[string]any{
		"title": 42,
		"count": "many",
		"done":  "yes",
	})
	msgs := fieldMessages(t, err)
	if msgs["title"] != "must be a string" {
		t.Fatalf("unexpected title message: %q", msgs["title"])
	}
	if msgs["count"] != "must be a number" {
		t.Fatalf("unexpected count message: %q", msgs["count"])
	}
	if msgs["done"] != "must be a boolean" {
		t.Fatalf("unexpected done message: %q", msgs["done"])
	}
}

func TestValidateCreate_UnknownFields_OpenSchema(t *testing.T) {
	t.Parallel()
	s := Default()

	fields, _, err := s.ValidateCreate(map[string]any{
		"name":     "John",
		"email":    "john@example.com",
		"password": "secret123",
		"extra":    "dropped",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := fields["extra"]; ok {
		t.Fatalf("unknown field must be dropped on an open schema")
	}
}

func TestValidateCreate_UnknownFields_ClosedSchema(t *testing.T) {
	t.Parallel()
	s := Default()
	s.Closed = true

	_, _, err := s.ValidateCreate(map[string]any{
		"name":     "John",
		"email":    "john@example.com",
		"password": "secret123",
		"extra":    "rejected",
	})
	msgs := fieldMessages(t, err)
	if msgs["extra"] != "is not allowed" {
		t.Fatalf("expected rejection of unknown field, got %v", msgs)
	}
}

func TestValidateUpdate_CredentialOptional(t *testing.T) {
	t.Parallel()
	s := Default()

	fields, secret, err := s.ValidateUpdate(map[string]any{
		"name":  "Johnny",
		"email": "johnny@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "" {
		t.Fatalf("expected no secret, got %q", secret)
	}
	if fields["name"] != "Johnny" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestValidate_TrimsStrings(t *testing.T) {
	t.Parallel()
	s := Default()

	fields, _, err := s.ValidateCreate(map[string]any{
		"name":     "  John  ",
		"email":    " john@example.com ",
		"password": "secret123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields["name"] != "John" || fields["email"] != "john@example.com" {
		t.Fatalf("expected trimmed values, got %v", fields)
	}
}

func TestLoad_InvalidSchemas(t *testing.T) {
	t.Parallel()

	bad := &Schema{Name: "x", Fields: []Field{{Name: "f", Type: "blob"}}}
	if err := bad.check(); err == nil {
		t.Fatalf("expected error for unknown field type")
	}

	missingLogin := &Schema{Name: "x", LoginField: "email"}
	if err := missingLogin.check(); err == nil {
		t.Fatalf("expected error for undeclared login field")
	}
}

func TestSchema_HasField_ExcludesCredential(t *testing.T) {
	t.Parallel()
	s := Default()

	if s.HasField("password") {
		t.Fatalf("credential field must not be storable")
	}
	if !s.HasField("email") {
		t.Fatalf("declared field must be storable")
	}
	if s.HasField("ghost") {
		t.Fatalf("undeclared field must not be storable")
	}
}
