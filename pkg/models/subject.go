package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Subject is an investigative entity that owns identifier records
type Subject struct {
	ID         string     `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Profile    Profile    `json:"profile" db:"-"`
	MergedInto *string    `json:"merged_into,omitempty" db:"merged_into"`
	MergedAt   *time.Time `json:"merged_at,omitempty" db:"merged_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// IsMerged reports whether the subject has been absorbed by another subject
func (s *Subject) IsMerged() bool {
	return s.MergedInto != nil && *s.MergedInto != ""
}

// ProfileValueKind tags which half of a ProfileValue is populated
type ProfileValueKind string

const (
	ProfileValueScalar ProfileValueKind = "scalar"
	ProfileValueList   ProfileValueKind = "list"
)

// ProfileValue is a profile field value: either a single scalar (string,
// number, bool or nested object) or a multi-valued list.
type ProfileValue struct {
	Kind   ProfileValueKind
	Scalar any
	List   []any
}

// Scalar wraps a single value
func Scalar(v any) ProfileValue {
	return ProfileValue{Kind: ProfileValueScalar, Scalar: v}
}

// List wraps a multi-valued field
func List(values ...any) ProfileValue {
	if values == nil {
		values = []any{}
	}
	return ProfileValue{Kind: ProfileValueList, List: values}
}

// IsList reports whether the value is multi-valued
func (v ProfileValue) IsList() bool { return v.Kind == ProfileValueList }

// Values flattens the value into a slice
func (v ProfileValue) Values() []any {
	if v.IsList() {
		return v.List
	}
	if v.Scalar == nil {
		return nil
	}
	return []any{v.Scalar}
}

// Strings returns the string form of every non-nil value
func (v ProfileValue) Strings() []string {
	values := v.Values()
	out := make([]string, 0, len(values))
	for _, item := range values {
		switch t := item.(type) {
		case nil:
			continue
		case string:
			out = append(out, t)
		default:
			out = append(out, fmt.Sprint(t))
		}
	}
	return out
}

func (v ProfileValue) MarshalJSON() ([]byte, error) {
	if v.IsList() {
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	}
	return json.Marshal(v.Scalar)
}

func (v *ProfileValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if list, ok := raw.([]any); ok {
		*v = List(list...)
		return nil
	}
	*v = Scalar(raw)
	return nil
}

// ProfileSection holds the fields of one profile section
type ProfileSection map[string]ProfileValue

// Profile is the free-form subject profile: section -> field -> value(s).
// Sections and fields the service does not know about pass through untouched.
type Profile map[string]ProfileSection

// Get resolves a "section.field" path
func (p Profile) Get(path string) (ProfileValue, bool) {
	section, field, ok := strings.Cut(path, ".")
	if !ok {
		return ProfileValue{}, false
	}
	fields, ok := p[section]
	if !ok {
		return ProfileValue{}, false
	}
	value, ok := fields[field]
	return value, ok
}

// Set assigns a "section.field" path, creating the section when needed
func (p Profile) Set(path string, value ProfileValue) error {
	section, field, ok := strings.Cut(path, ".")
	if !ok || section == "" || field == "" {
		return fmt.Errorf("invalid profile path %q", path)
	}
	if p[section] == nil {
		p[section] = ProfileSection{}
	}
	p[section][field] = value
	return nil
}

// Clone returns a copy whose sections and lists can be modified independently
func (p Profile) Clone() Profile {
	if p == nil {
		return Profile{}
	}
	out := make(Profile, len(p))
	for section, fields := range p {
		copied := make(ProfileSection, len(fields))
		for name, value := range fields {
			if value.IsList() {
				list := make([]any, len(value.List))
				copy(list, value.List)
				value.List = list
			}
			copied[name] = value
		}
		out[section] = copied
	}
	return out
}

// FieldCount returns the number of fields across all sections
func (p Profile) FieldCount() int {
	n := 0
	for _, fields := range p {
		n += len(fields)
	}
	return n
}
