package sync

import (
	"fmt"
	"time"
)

// Stats are the aggregate counters of one sync pass.
type Stats struct {
	// Created counts new property + extension pairs.
	Created int `json:"created"`

	// Updated counts extensions refreshed from a newer upstream revision.
	Updated int `json:"updated"`

	// Skipped counts elements whose stored revision was already current.
	Skipped int `json:"skipped"`

	// Errors counts elements that failed normalization, decision, or
	// persistence and were passed over.
	Errors int `json:"errors"`

	// Elements is the number of raw elements the fetch returned.
	Elements int `json:"elements"`

	// Duration is the wall-clock time of the whole pass, fetch included.
	Duration time.Duration `json:"duration"`
}

// Processed returns the number of elements that reached a decision.
func (s Stats) Processed() int {
	return s.Created + s.Updated + s.Skipped
}

// String implements fmt.Stringer.
func (s Stats) String() string {
	return fmt.Sprintf("created=%d updated=%d skipped=%d errors=%d",
		s.Created, s.Updated, s.Skipped, s.Errors)
}
