package model

import "time"

// User is the minimal projection of a job-board account this service needs.
// Account management itself lives elsewhere.
type User struct {
	ID           string // UUID
	Email        string
	FullName     string
	RegisteredAt time.Time
}
