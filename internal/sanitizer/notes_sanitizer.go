// Package sanitizer strips markup from free-text fields before storage.
// Session and equipment notes are rendered in the web dashboard, so any
// embedded HTML is removed rather than escaped.
package sanitizer

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// NotesSanitizer cleans user-supplied notes text
type NotesSanitizer struct {
	policy *bluemonday.Policy
}

// NewNotesSanitizer creates a sanitizer that allows no markup at all
func NewNotesSanitizer() *NotesSanitizer {
	return &NotesSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize removes all HTML from the given text and trims whitespace
func (s *NotesSanitizer) Sanitize(text string) string {
	return strings.TrimSpace(s.policy.Sanitize(text))
}

// SanitizePtr sanitizes an optional notes field, mapping an empty result to nil
func (s *NotesSanitizer) SanitizePtr(text *string) *string {
	if text == nil {
		return nil
	}
	clean := s.Sanitize(*text)
	if clean == "" {
		return nil
	}
	return &clean
}
