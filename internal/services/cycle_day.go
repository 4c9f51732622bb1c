package services

import (
	"time"

	"github.com/terraincognita07/lua/internal/models"
)

// CycleDay locates today inside the current cycle.
type CycleDay struct {
	Day            int    `json:"day"`
	Total          int    `json:"total"`
	DaysUntilNext  *int   `json:"daysUntilNext"`
	Stale          bool   `json:"stale"`
	LastPeriodDate string `json:"lastPeriodDate"`
}

// DayOfCycle counts days since the most recently started period, ongoing
// or not. It returns nil without records or when that start lies after today.
// Stale marks a cycle running past twice its expected length.
func DayOfCycle(periods []models.Period, option PredictionOption, today time.Time) *CycleDay {
	today = dateOnly(today)
	dated := parsePeriods(periods)
	if len(dated) == 0 {
		return nil
	}

	last := dated[len(dated)-1]
	day := DaysBetween(last.start, today) + 1
	if day < 1 {
		return nil
	}

	prediction := option.Resolve(periods, today)
	total := models.DefaultCycleLength
	var daysUntilNext *int
	if prediction != nil {
		total = prediction.AvgCycleLength
		if predictedStart, err := ParseDate(prediction.PredictedStart); err == nil {
			until := DaysBetween(today, predictedStart)
			daysUntilNext = &until
		}
	}

	return &CycleDay{
		Day:            day,
		Total:          total,
		DaysUntilNext:  daysUntilNext,
		Stale:          day > total*2,
		LastPeriodDate: last.record.StartDate,
	}
}
