package services

import (
	"errors"
	"math"
	"regexp"
	"time"
)

const DateLayout = "2006-01-02"

var (
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	ErrInvalidDate = errors.New("invalid date")
)

// ParseDate parses a YYYY-MM-DD calendar date into UTC midnight. Shape and
// calendar validity are both checked, so 2023-02-30 is rejected.
func ParseDate(raw string) (time.Time, error) {
	if !isoDatePattern.MatchString(raw) {
		return time.Time{}, ErrInvalidDate
	}
	parsed, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return parsed, nil
}

func IsValidDate(raw string) bool {
	_, err := ParseDate(raw)
	return err == nil
}

func FormatDate(value time.Time) string {
	return value.Format(DateLayout)
}

// DateAtLocation truncates value to its calendar date as seen in location.
func DateAtLocation(value time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	year, month, day := value.In(location).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, location)
}

// CalendarToday returns the calendar date of now in location, expressed as
// a UTC midnight so it compares directly with parsed record dates.
func CalendarToday(now time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	year, month, day := now.In(location).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dateOnly(value time.Time) time.Time {
	year, month, day := value.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func AddDays(value time.Time, days int) time.Time {
	return value.AddDate(0, 0, days)
}

// DaysBetween returns the number of calendar days from start to end.
func DaysBetween(start time.Time, end time.Time) int {
	return int(math.Round(dateOnly(end).Sub(dateOnly(start)).Hours() / 24))
}

// EachDay enumerates every date in [start, end]. An inverted interval yields nil.
func EachDay(start time.Time, end time.Time) []time.Time {
	start, end = dateOnly(start), dateOnly(end)
	if end.Before(start) {
		return nil
	}
	days := make([]time.Time, 0, DaysBetween(start, end)+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

func MinDate(first time.Time, others ...time.Time) time.Time {
	result := first
	for _, other := range others {
		if other.Before(result) {
			result = other
		}
	}
	return result
}

func MaxDate(first time.Time, others ...time.Time) time.Time {
	result := first
	for _, other := range others {
		if other.After(result) {
			result = other
		}
	}
	return result
}

// FormatDateRange renders a period range for humans, e.g. "Jun 7–9, 2023"
// or "Jun 28 – Jul 1, 2021". Unparsable input is returned as-is.
func FormatDateRange(start string, end *string) string {
	startDate, err := ParseDate(start)
	if err != nil {
		return start
	}
	if end == nil {
		return startDate.Format("Jan 2, 2006") + " — Ongoing"
	}
	endDate, err := ParseDate(*end)
	if err != nil {
		return startDate.Format("Jan 2, 2006")
	}
	if startDate.Year() == endDate.Year() && startDate.Month() == endDate.Month() {
		return startDate.Format("Jan 2") + "–" + endDate.Format("2, 2006")
	}
	return startDate.Format("Jan 2") + " – " + endDate.Format("Jan 2, 2006")
}
