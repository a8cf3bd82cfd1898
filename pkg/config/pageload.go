package config

import (
	"fmt"
	"sync"
	"time"
)

const (
	// SectionIDPageLoad is the identifier for the page-load settings section
	SectionIDPageLoad = "pageload"

	defaultReleaseDelay  = 50 * time.Millisecond
	defaultFetchTimeout  = 15 * time.Second
	defaultMaxBodyBytes  = 8 << 20
	defaultOutlineLength = 4000
)

// PageLoadSection configures how page documents are fetched and cached.
type PageLoadSection struct {
	ReleaseDelay  time.Duration
	FetchTimeout  time.Duration
	UserAgent     string
	MaxBodyBytes  int
	OutlineLength int
	mu            sync.RWMutex
}

// NewPageLoadSection creates a page-load section with default settings.
func NewPageLoadSection() *PageLoadSection {
	s := &PageLoadSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *PageLoadSection) ID() string {
	return SectionIDPageLoad
}

// Title returns the section title.
func (s *PageLoadSection) Title() string {
	return "Page Loading"
}

// Description returns the section description.
func (s *PageLoadSection) Description() string {
	return "Fetch timeout, response size cap and how long an unused page load stays cached."
}

// Data returns the current configuration data.
func (s *PageLoadSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"release_delay":  s.ReleaseDelay.String(),
		"fetch_timeout":  s.FetchTimeout.String(),
		"user_agent":     s.UserAgent,
		"max_body_bytes": s.MaxBodyBytes,
		"outline_length": s.OutlineLength,
	}
}

// SetData updates the configuration from the provided data.
func (s *PageLoadSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "release_delay":
			s.ReleaseDelay, err = toDuration(key, value)
		case "fetch_timeout":
			s.FetchTimeout, err = toDuration(key, value)
		case "user_agent":
			s.UserAgent, err = toString(key, value)
		case "max_body_bytes":
			s.MaxBodyBytes, err = toInt(key, value)
		case "outline_length":
			s.OutlineLength, err = toInt(key, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *PageLoadSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ReleaseDelay < 0 || s.ReleaseDelay > time.Minute {
		return fmt.Errorf("release_delay must be between 0 and 1m, got %v", s.ReleaseDelay)
	}
	if s.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive, got %v", s.FetchTimeout)
	}
	if s.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", s.MaxBodyBytes)
	}
	if s.OutlineLength <= 0 {
		return fmt.Errorf("outline_length must be positive, got %d", s.OutlineLength)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *PageLoadSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ReleaseDelay = defaultReleaseDelay
	s.FetchTimeout = defaultFetchTimeout
	s.UserAgent = ""
	s.MaxBodyBytes = defaultMaxBodyBytes
	s.OutlineLength = defaultOutlineLength
}

// GetReleaseDelay returns how long an unused load stays cached.
func (s *PageLoadSection) GetReleaseDelay() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ReleaseDelay
}

// GetFetch returns the fetch timeout, user agent and body size cap.
func (s *PageLoadSection) GetFetch() (time.Duration, string, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.FetchTimeout, s.UserAgent, s.MaxBodyBytes
}

// GetOutlineLength returns the outline size limit.
func (s *PageLoadSection) GetOutlineLength() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.OutlineLength
}
