package models

import "time"

type RefreshToken struct {
	ID        string
	RecordID  string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
