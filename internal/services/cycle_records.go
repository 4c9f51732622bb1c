package services

import (
	"sort"
	"time"

	"github.com/terraincognita07/lua/internal/models"
)

// datedPeriod is a period record with its dates parsed.
type datedPeriod struct {
	record models.Period
	start  time.Time
	end    time.Time
}

func (period datedPeriod) ongoing() bool {
	return period.record.EndDate == nil
}

// parsePeriods parses and sorts records ascending by start date. Records
// with unparsable dates or an end before their start are dropped.
func parsePeriods(periods []models.Period) []datedPeriod {
	parsed := make([]datedPeriod, 0, len(periods))
	for _, period := range periods {
		start, err := ParseDate(period.StartDate)
		if err != nil {
			continue
		}
		entry := datedPeriod{record: period, start: start}
		if period.EndDate != nil {
			end, err := ParseDate(*period.EndDate)
			if err != nil || end.Before(start) {
				continue
			}
			entry.end = end
		}
		parsed = append(parsed, entry)
	}
	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].start.Before(parsed[j].start)
	})
	return parsed
}

func completedPeriods(periods []datedPeriod) []datedPeriod {
	completed := make([]datedPeriod, 0, len(periods))
	for _, period := range periods {
		if !period.ongoing() {
			completed = append(completed, period)
		}
	}
	return completed
}

func latestOngoing(periods []datedPeriod) (datedPeriod, bool) {
	for index := len(periods) - 1; index >= 0; index-- {
		if periods[index].ongoing() {
			return periods[index], true
		}
	}
	return datedPeriod{}, false
}

func periodDuration(period datedPeriod) int {
	return DaysBetween(period.start, period.end) + 1
}

// SortPeriods returns a copy of periods ordered ascending by start date.
func SortPeriods(periods []models.Period) []models.Period {
	sorted := make([]models.Period, len(periods))
	copy(sorted, periods)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartDate == sorted[j].StartDate {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].StartDate < sorted[j].StartDate
	})
	return sorted
}

// OngoingPeriod returns the first record without an end date.
func OngoingPeriod(periods []models.Period) (models.Period, bool) {
	for _, period := range periods {
		if period.EndDate == nil {
			return period, true
		}
	}
	return models.Period{}, false
}
