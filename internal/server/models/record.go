package models

import "time"

// Record is a single persisted entity instance: a server-generated immutable
// key plus a flexible bag of schema-validated fields stored as JSONB.
type Record struct {
	ID        string         `json:"id"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
