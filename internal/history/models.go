package history

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record doesn't exist.
var ErrNotFound = errors.New("not found")

// Resolution is one recorded lookup: what was asked, what the pipeline
// decided, and where the answer came from.
type Resolution struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	Query         string    `json:"query"`
	Interpreted   string    `json:"interpreted"`
	Found         bool      `json:"found"`
	Department    string    `json:"department,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Source        string    `json:"source,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	LowConfidence bool      `json:"lowConfidence,omitempty"`
	PhonesJSON    string    `json:"-"` // all extracted candidates, JSON array
	URLsJSON      string    `json:"-"` // pages consulted, JSON array
}
