package services

import (
	"time"

	"github.com/terraincognita07/lua/internal/models"
)

type CycleInfo struct {
	StartDate      string           `json:"startDate"`
	EndDate        *string          `json:"endDate"`
	CycleLength    int              `json:"cycleLength"`
	PeriodDuration int              `json:"periodDuration"`
	Fertility      *FertilityWindow `json:"fertility"`
	Estimated      bool             `json:"estimated"`
}

// BuildCycleHistory lists completed periods oldest first. The last entry's
// length is not yet known, so it takes the prediction average (or 28) and is
// marked estimated. Lengths outside (0, 90) are stored as 0 without fertility.
func BuildCycleHistory(periods []models.Period, option PredictionOption, today time.Time) []CycleInfo {
	completed := completedPeriods(parsePeriods(periods))
	if len(completed) == 0 {
		return []CycleInfo{}
	}

	fallbackLength := models.DefaultCycleLength
	if prediction := option.Resolve(periods, today); prediction != nil {
		fallbackLength = prediction.AvgCycleLength
	}

	history := make([]CycleInfo, 0, len(completed))
	for index, period := range completed {
		info := CycleInfo{
			StartDate:      period.record.StartDate,
			EndDate:        period.record.EndDate,
			PeriodDuration: periodDuration(period),
		}
		if index+1 < len(completed) {
			info.CycleLength = DaysBetween(period.start, completed[index+1].start)
		} else {
			info.CycleLength = fallbackLength
			info.Estimated = true
		}

		if validCycleLength(info.CycleLength) {
			info.Fertility = EstimateFertilityWindow(period.start, info.CycleLength)
		} else {
			info.CycleLength = 0
		}
		history = append(history, info)
	}
	return history
}

// ReverseCycles returns history newest first.
func ReverseCycles(history []CycleInfo) []CycleInfo {
	reversed := make([]CycleInfo, len(history))
	for index, cycle := range history {
		reversed[len(history)-1-index] = cycle
	}
	return reversed
}
