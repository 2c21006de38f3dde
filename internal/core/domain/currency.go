package domain

import "time"

// Currency is immutable reference data identified by a short code ("RUB", "USD").
// Rows are created idempotently by the seeder and never deleted while referenced.
type Currency struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}
