package model

import "fmt"

// Unit is the temperature unit shown to the user.
type Unit string

const (
	UnitCelsius    Unit = "C"
	UnitFahrenheit Unit = "F"
)

// ParseUnit accepts "C" or "F" (case-insensitive).
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "C", "c":
		return UnitCelsius, nil
	case "F", "f":
		return UnitFahrenheit, nil
	default:
		return "", fmt.Errorf("model: unknown unit %q", s)
	}
}

// UnitSystem is the value the weather service expects for this unit.
func (u Unit) UnitSystem() string {
	if u == UnitFahrenheit {
		return "imperial"
	}
	return "metric"
}

// Symbol is the suffix used when printing a temperature.
func (u Unit) Symbol() string {
	if u == UnitFahrenheit {
		return "°F"
	}
	return "°C"
}

// Settings is the singleton preferences row.
type Settings struct {
	Unit              Unit `json:"unit"              db:"unit"`
	DynamicBackground bool `json:"dynamicBackground" db:"dynamic_bg"`
}

// DefaultSettings is what GetSettings returns when the row is missing.
func DefaultSettings() Settings {
	return Settings{Unit: UnitCelsius, DynamicBackground: true}
}
