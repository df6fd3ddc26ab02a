package models

import "time"

// Credential binds a record to a one-way-hashed secret. The plaintext is
// never stored; SecretHash is a bcrypt digest with the salt embedded.
type Credential struct {
	RecordID   string    `json:"-"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"-"`
}
