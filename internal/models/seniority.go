package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Seniority is an ordinal career level. The zero value is SeniorityUnknown.
type Seniority int

const (
	// SeniorityUnknown is used when no (or an unrecognized) level was given. It never matches.
	SeniorityUnknown Seniority = iota
	SeniorityEntry
	SeniorityJunior
	SeniorityMid
	SenioritySenior
	SeniorityLead
	SeniorityPrincipal
)

var seniorityNames = map[Seniority]string{
	SeniorityUnknown:   "UNKNOWN",
	SeniorityEntry:     "ENTRY",
	SeniorityJunior:    "JUNIOR",
	SeniorityMid:       "MID",
	SenioritySenior:    "SENIOR",
	SeniorityLead:      "LEAD",
	SeniorityPrincipal: "PRINCIPAL",
}

// String returns the upper-case level name.
func (s Seniority) String() string {
	if name, ok := seniorityNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Known reports whether s is one of the ordered levels.
func (s Seniority) Known() bool {
	return s >= SeniorityEntry && s <= SeniorityPrincipal
}

// ParseSeniority parses a level name case-insensitively. Empty input yields SeniorityUnknown
// without error; anything else unrecognized is an ErrInvalidInput.
func ParseSeniority(s string) (Seniority, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return SeniorityUnknown, nil
	}
	switch s {
	case "INTERN", "ENTRY", "ENTRY_LEVEL", "ENTRY-LEVEL":
		return SeniorityEntry, nil
	case "JUNIOR", "JR":
		return SeniorityJunior, nil
	case "MID", "MIDDLE", "MID_LEVEL", "MID-LEVEL", "INTERMEDIATE":
		return SeniorityMid, nil
	case "SENIOR", "SR":
		return SenioritySenior, nil
	case "LEAD", "STAFF":
		return SeniorityLead, nil
	case "PRINCIPAL":
		return SeniorityPrincipal, nil
	case "UNKNOWN":
		return SeniorityUnknown, nil
	}
	return SeniorityUnknown, fmt.Errorf("%w: unknown seniority %q", ErrInvalidInput, s)
}

// MarshalJSON encodes the level by name.
func (s Seniority) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a level name.
func (s *Seniority) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("%w: seniority must be a string", ErrInvalidInput)
	}
	parsed, err := ParseSeniority(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
