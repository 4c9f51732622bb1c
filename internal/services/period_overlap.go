package services

import (
	"errors"
	"time"

	"github.com/terraincognita07/lua/internal/models"
)

var (
	ErrPeriodOverlap      = errors.New("period overlaps an existing period")
	ErrInvalidPeriodRange = errors.New("period end date is before start date")
)

// ValidateNoOverlap rejects a candidate whose range intersects any other
// stored record. Open ends on either side run through today. Records sharing
// the candidate's ID are skipped so an edit does not collide with itself.
func ValidateNoOverlap(periods []models.Period, candidate models.Period, today time.Time) error {
	start, end, err := periodBounds(candidate, today)
	if err != nil {
		return err
	}

	for _, period := range periods {
		if candidate.ID != 0 && period.ID == candidate.ID {
			continue
		}
		otherStart, otherEnd, err := periodBounds(period, today)
		if err != nil {
			continue
		}
		if !start.After(otherEnd) && !end.Before(otherStart) {
			return ErrPeriodOverlap
		}
	}
	return nil
}

func periodBounds(period models.Period, today time.Time) (time.Time, time.Time, error) {
	start, err := ParseDate(period.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if period.EndDate == nil {
		return start, MaxDate(start, dateOnly(today)), nil
	}
	end, err := ParseDate(*period.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, ErrInvalidPeriodRange
	}
	return start, end, nil
}
