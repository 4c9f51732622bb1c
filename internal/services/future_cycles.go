package services

import (
	"time"

	"github.com/terraincognita07/lua/internal/models"
)

const DefaultForecastCycles = 12

type FutureCycle struct {
	CycleNumber       int              `json:"cycleNumber"`
	PredictedStart    string           `json:"predictedStart"`
	PredictedEnd      string           `json:"predictedEnd"`
	Fertility         *FertilityWindow `json:"fertility"`
	AvgCycleLength    int              `json:"avgCycleLength"`
	AvgPeriodDuration int              `json:"avgPeriodDuration"`
}

// PredictNextNPeriods chains n cycles forward from the base prediction with
// constant averages. An overdue forecast is re-anchored at today.
func PredictNextNPeriods(periods []models.Period, n int, windowSize int, today time.Time) []FutureCycle {
	if n <= 0 {
		return []FutureCycle{}
	}
	today = dateOnly(today)

	base := PredictNextPeriod(periods, windowSize, today)
	if base == nil {
		return []FutureCycle{}
	}
	return chainFutureCycles(*base, n, today)
}

func chainFutureCycles(base CyclePrediction, n int, today time.Time) []FutureCycle {
	start := today
	if base.DaysLate <= 0 {
		parsed, err := ParseDate(base.PredictedStart)
		if err != nil {
			return []FutureCycle{}
		}
		start = parsed
	}

	cycles := make([]FutureCycle, 0, n)
	for index := 0; index < n; index++ {
		cycleStart := AddDays(start, index*base.AvgCycleLength)
		cycles = append(cycles, FutureCycle{
			CycleNumber:       index + 1,
			PredictedStart:    FormatDate(cycleStart),
			PredictedEnd:      FormatDate(AddDays(cycleStart, base.AvgPeriodDuration-1)),
			Fertility:         EstimateFertilityWindow(cycleStart, base.AvgCycleLength),
			AvgCycleLength:    base.AvgCycleLength,
			AvgPeriodDuration: base.AvgPeriodDuration,
		})
	}
	return cycles
}
