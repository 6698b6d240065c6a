package domain

import (
	"errors"
	"fmt"
)

// Weekday is a lowercase English day name.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays in calendar order, Monday first.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var (
	ErrUnknownWeekday    = errors.New("unknown weekday")
	ErrAssignedDaysShape = errors.New("assigned days must be a list of weekday names or a map of weekday name to boolean")
)

func ParseWeekday(s string) (Weekday, error) {
	for _, d := range Weekdays {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWeekday, s)
}

// NormalizeAssignedDays accepts decoded JSON in either of its two accepted
// shapes, a list of names or a name→bool map, and returns the selected days
// in calendar order without duplicates. A nil input selects no days.
func NormalizeAssignedDays(raw any) ([]Weekday, error) {
	selected := make(map[Weekday]bool, len(Weekdays))
	switch v := raw.(type) {
	case nil:
		return []Weekday{}, nil
	case []string:
		for _, name := range v {
			d, err := ParseWeekday(name)
			if err != nil {
				return nil, err
			}
			selected[d] = true
		}
	case []any:
		for _, item := range v {
			name, ok := item.(string)
			if !ok {
				return nil, ErrAssignedDaysShape
			}
			d, err := ParseWeekday(name)
			if err != nil {
				return nil, err
			}
			selected[d] = true
		}
	case map[string]bool:
		for name, on := range v {
			d, err := ParseWeekday(name)
			if err != nil {
				return nil, err
			}
			selected[d] = on
		}
	case map[string]any:
		for name, val := range v {
			d, err := ParseWeekday(name)
			if err != nil {
				return nil, err
			}
			on, ok := val.(bool)
			if !ok {
				return nil, ErrAssignedDaysShape
			}
			selected[d] = on
		}
	default:
		return nil, ErrAssignedDaysShape
	}

	days := make([]Weekday, 0, len(selected))
	for _, d := range Weekdays {
		if selected[d] {
			days = append(days, d)
		}
	}
	return days, nil
}
