package models

import (
	"fmt"
	"strings"
)

// Gender uses the dataset coding: 1 female, 2 male.
type Gender int

const (
	GenderFemale Gender = 1
	GenderMale   Gender = 2
)

func (g Gender) String() string {
	switch g {
	case GenderFemale:
		return "female"
	case GenderMale:
		return "male"
	}
	return fmt.Sprintf("gender(%d)", int(g))
}

// ParseGender accepts names ("female", "m") and dataset codes ("1", "2").
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "female", "f":
		return GenderFemale, nil
	case "2", "male", "m":
		return GenderMale, nil
	}
	return 0, fmt.Errorf("unknown gender %q", s)
}

// Level grades cholesterol and glucose: 1 normal, 2 above normal, 3 well above normal.
type Level int

const (
	LevelNormal          Level = 1
	LevelAboveNormal     Level = 2
	LevelWellAboveNormal Level = 3
)

func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelAboveNormal:
		return "above-normal"
	case LevelWellAboveNormal:
		return "well-above-normal"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel accepts names in dash, underscore or space form and codes 1..3.
func ParseLevel(s string) (Level, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "-", " ", "-").Replace(norm)
	switch norm {
	case "1", "normal":
		return LevelNormal, nil
	case "2", "above-normal":
		return LevelAboveNormal, nil
	case "3", "well-above-normal":
		return LevelWellAboveNormal, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}

// ParseFlag accepts the usual spellings of a yes/no form field.
func ParseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a yes/no value: %q", s)
}
