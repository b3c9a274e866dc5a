package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Specialties is a caregiver's list of care skills, stored as a JSON array.
type Specialties []string

// Value implements the driver.Valuer interface
func (s Specialties) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface
func (s *Specialties) Scan(value interface{}) error {
	if value == nil {
		*s = Specialties{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal Specialties: unsupported type %T", value)
	}
	return json.Unmarshal(data, s)
}

// Normalize trims entries and drops blanks and case-insensitive duplicates.
func (s Specialties) Normalize() Specialties {
	seen := make(map[string]bool, len(s))
	out := Specialties{}
	for _, item := range s {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
