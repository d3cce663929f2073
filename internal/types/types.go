// Package types defines shared types used across the application.
package types

import (
	"fmt"
	"time"
)

// Status is the terminal outcome of one page visit.
type Status string

const (
	StatusFollow          Status = "follow"
	StatusAlreadyFollowed Status = "already followed"
	StatusSkipped         Status = "skipped"
	StatusError           Status = "error"
)

var statuses = []Status{StatusFollow, StatusAlreadyFollowed, StatusSkipped, StatusError}

// ParseStatus returns the Status matching s or an error if s is not one of
// the known outcomes.
func ParseStatus(s string) (Status, error) {
	for _, st := range statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Followed reports whether the entity is followed after the visit, regardless
// of whether this visit did the clicking.
func (s Status) Followed() bool {
	return s == StatusFollow || s == StatusAlreadyFollowed
}

// Report is the body of the callback sent to the controller once per visit.
type Report struct {
	TaskID string `json:"task_id"`
	URL    string `json:"url"`
	Status Status `json:"status"`
	Reason string `json:"reason"`
}

// Result is the controller side view of one task: the requested url together
// with the report that came back for it (or the reason why none did).
type Result struct {
	TaskID     string    `json:"task_id"`
	URL        string    `json:"url"`
	Status     Status    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	ReportedAt time.Time `json:"reported_at"`
	Duration   float64   `json:"duration_seconds"`
}

// Summary aggregates the results of one run.
type Summary struct {
	Started         time.Time `json:"started"`
	Finished        time.Time `json:"finished"`
	Total           int       `json:"total"`
	Followed        int       `json:"followed"`
	AlreadyFollowed int       `json:"already_followed"`
	Skipped         int       `json:"skipped"`
	Errors          int       `json:"errors"`
}

// Add counts r into the summary.
func (s *Summary) Add(r Result) {
	s.Total++
	switch r.Status {
	case StatusFollow:
		s.Followed++
	case StatusAlreadyFollowed:
		s.AlreadyFollowed++
	case StatusSkipped:
		s.Skipped++
	default:
		s.Errors++
	}
}

// Failed reports whether any result of the run was an error.
func (s Summary) Failed() bool {
	return s.Errors > 0
}
