package gitvcs

import (
	"sync"
	"time"
)

// StatusRecord is the shared, mutable service status: last successful
// commit time and last error. It is an explicitly owned handle passed to
// the service so tests can construct independent instances. Writes are
// last-write-wins; the record is diagnostic, not authoritative.
type StatusRecord struct {
	mu            sync.Mutex
	lastCommit    *time.Time
	lastError     string
	lastErrorTime *time.Time
}

// NewStatusRecord creates an empty status record.
func NewStatusRecord() *StatusRecord {
	return &StatusRecord{}
}

// Fail overwrites the last error.
func (s *StatusRecord) Fail(msg string) {
	now := time.Now()
	s.mu.Lock()
	s.lastError = msg
	s.lastErrorTime = &now
	s.mu.Unlock()
}

// Committed records a successful non-no-op commit and clears the error.
func (s *StatusRecord) Committed() {
	now := time.Now()
	s.mu.Lock()
	s.lastCommit = &now
	s.lastError = ""
	s.lastErrorTime = nil
	s.mu.Unlock()
}

// Status is the externally visible service state, reported by the health
// endpoint.
type Status struct {
	Enabled       bool    `json:"enabled"`
	LastCommit    *int64  `json:"last_commit"`
	LastError     *string `json:"last_error"`
	LastErrorTime *int64  `json:"last_error_time"`
}

// snapshot renders the record into a Status with the given enabled flag.
func (s *StatusRecord) snapshot(enabled bool) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Status{Enabled: enabled}
	if s.lastCommit != nil {
		t := s.lastCommit.Unix()
		out.LastCommit = &t
	}
	if s.lastError != "" {
		msg := s.lastError
		out.LastError = &msg
	}
	if s.lastErrorTime != nil {
		t := s.lastErrorTime.Unix()
		out.LastErrorTime = &t
	}
	return out
}
