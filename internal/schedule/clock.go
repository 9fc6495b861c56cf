// Package schedule holds the calendar arithmetic shared by bookings and
// recurring lessons. Dates are civil dates carried as midnight UTC so that
// day stepping never drifts across DST or host timezones.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidDate = errors.New("invalid date")
	ErrInvalidTime = errors.New("invalid time")
)

func ParseDate(raw string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q must be YYYY-MM-DD", ErrInvalidDate, raw)
	}
	return parsed, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// AddMonths rolls day-of-month overflow forward, so Jan 31 + 1 month is Mar 3 (or Mar 2 in leap years).
func AddMonths(t time.Time, months int) time.Time {
	return t.AddDate(0, months, 0)
}

// NormalizeTime converts "h:mm AM/PM" or "H:mm" labels into zero-padded 24-hour "HH:mm".
func NormalizeTime(label string) (string, error) {
	hour, minute, err := parseClock(label)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

func parseClock(label string) (int, int, error) {
	value := strings.TrimSpace(label)
	upper := strings.ToUpper(value)

	meridiem := ""
	if strings.HasSuffix(upper, "AM") || strings.HasSuffix(upper, "PM") {
		meridiem = upper[len(upper)-2:]
		value = strings.TrimSpace(value[:len(value)-2])
	}

	hourPart, minutePart, ok := strings.Cut(value, ":")
	if !ok || !isDigits(hourPart) || len(hourPart) > 2 || len(minutePart) != 2 || !isDigits(minutePart) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, label)
	}

	hour, _ := strconv.Atoi(hourPart)
	minute, _ := strconv.Atoi(minutePart)
	if minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, label)
	}

	switch meridiem {
	case "":
		if hour > 23 {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, label)
		}
	default:
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, label)
		}
		if hour == 12 {
			hour = 0
		}
		if meridiem == "PM" {
			hour += 12
		}
	}

	return hour, minute, nil
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SlotStart resolves a calendar date and a time label to an absolute instant in loc.
func SlotStart(date string, label string, loc *time.Location) (time.Time, error) {
	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := parseClock(label)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}
