package services

import (
	"github.com/terraincognita07/lua/internal/models"
)

type dayRange struct {
	start string
	end   string
}

// ComputePeriodChanges diffs a calendar day selection against stored
// records. Runs of consecutive selected days become candidate ranges; each
// range claims the first unclaimed stored record overlapping it (update when
// its dates differ) or becomes an add. Unclaimed records with no selected day
// left are deleted. Adds and updates come in range order, deletes last.
func ComputePeriodChanges(periods []models.Period, selectedDays DateSet) []models.PeriodChange {
	changes := make([]models.PeriodChange, 0)
	stored := SortPeriods(periods)
	matched := make(map[uint]bool, len(stored))

	for _, candidate := range groupSelectedDays(selectedDays) {
		existing, ok := firstOverlapping(stored, matched, candidate)
		if !ok {
			changes = append(changes, models.PeriodChange{
				Action: models.ChangeAdd,
				Period: models.Period{StartDate: candidate.start, EndDate: models.StringPtr(candidate.end)},
			})
			continue
		}

		matched[existing.ID] = true
		if existing.StartDate != candidate.start || existing.EndDate == nil || *existing.EndDate != candidate.end {
			changes = append(changes, models.PeriodChange{
				Action: models.ChangeUpdate,
				Period: models.Period{ID: existing.ID, StartDate: candidate.start, EndDate: models.StringPtr(candidate.end)},
			})
		}
	}

	for _, period := range stored {
		if period.ID == 0 || matched[period.ID] {
			continue
		}
		if !anyDaySelected(period, selectedDays) {
			changes = append(changes, models.PeriodChange{Action: models.ChangeDelete, Period: period})
		}
	}
	return changes
}

// groupSelectedDays merges sorted selected days into maximal runs where
// neighbours are at most one day apart. Invalid keys are ignored.
func groupSelectedDays(selectedDays DateSet) []dayRange {
	ranges := make([]dayRange, 0)
	var lastEnd string
	for _, key := range selectedDays.Sorted() {
		day, err := ParseDate(key)
		if err != nil {
			continue
		}
		if len(ranges) > 0 {
			previous, _ := ParseDate(lastEnd)
			if DaysBetween(previous, day) <= 1 {
				ranges[len(ranges)-1].end = key
				lastEnd = key
				continue
			}
		}
		ranges = append(ranges, dayRange{start: key, end: key})
		lastEnd = key
	}
	return ranges
}

func firstOverlapping(periods []models.Period, matched map[uint]bool, candidate dayRange) (models.Period, bool) {
	for _, period := range periods {
		if period.ID == 0 || matched[period.ID] {
			continue
		}
		if period.StartDate <= candidate.end && period.EndOrStart() >= candidate.start {
			return period, true
		}
	}
	return models.Period{}, false
}

func anyDaySelected(period models.Period, selectedDays DateSet) bool {
	for _, key := range rangeKeys(period.StartDate, period.EndOrStart()) {
		if selectedDays.Has(key) {
			return true
		}
	}
	return false
}
