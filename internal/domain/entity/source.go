package entity

import "time"

// Source is one registered intelligence source. The orchestrator crawls the
// URL of every active source on each run.
type Source struct {
	ID            int64
	Name          string
	URL           string
	LastCrawledAt *time.Time
	Active        bool
}

// Validate checks the Source fields before persistence.
func (s *Source) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	return ValidateURL(s.URL)
}
