package services

import (
	"time"

	"github.com/terraincognita07/lua/internal/models"
)

type DashboardStatus string

const (
	StatusNoData       DashboardStatus = "no_data"
	StatusStale        DashboardStatus = "stale"
	StatusSinglePeriod DashboardStatus = "single_period"
	StatusNormal       DashboardStatus = "normal"
)

// Snapshot is every derived value computed from one consistent read of the
// stored periods.
type Snapshot struct {
	Today        string            `json:"today"`
	Periods      []models.Period   `json:"periods"`
	Prediction   *CyclePrediction  `json:"prediction"`
	CycleDay     *CycleDay         `json:"cycleDay"`
	Phase        *PhaseInfo        `json:"phase"`
	FutureCycles []FutureCycle     `json:"futureCycles"`
	History      []CycleInfo       `json:"history"`
	DateSets     CalendarDateSets  `json:"dateSets"`
	Fluctuation  *CycleFluctuation `json:"fluctuation"`
	Status       DashboardStatus   `json:"status"`
}

type SnapshotOptions struct {
	PredictionWindow int
	ForecastCycles   int
}

func BuildSnapshot(periods []models.Period, today time.Time, options SnapshotOptions) Snapshot {
	today = dateOnly(today)
	if options.PredictionWindow <= 0 {
		options.PredictionWindow = DefaultPredictionWindow
	}
	if options.ForecastCycles <= 0 {
		options.ForecastCycles = DefaultForecastCycles
	}

	sorted := SortPeriods(periods)
	prediction := PredictNextPeriod(sorted, options.PredictionWindow, today)
	cycleDay := DayOfCycle(sorted, PredictionFrom(prediction), today)

	var phase *PhaseInfo
	if cycleDay != nil && prediction != nil {
		phase = CyclePhase(cycleDay.Day, prediction.AvgCycleLength, prediction.AvgPeriodDuration)
	}

	futureCycles := []FutureCycle{}
	if prediction != nil {
		futureCycles = chainFutureCycles(*prediction, options.ForecastCycles, today)
	}
	history := BuildCycleHistory(sorted, PredictionFrom(prediction), today)

	return Snapshot{
		Today:        FormatDate(today),
		Periods:      sorted,
		Prediction:   prediction,
		CycleDay:     cycleDay,
		Phase:        phase,
		FutureCycles: futureCycles,
		History:      history,
		DateSets:     BuildDateSets(sorted, prediction, futureCycles, today),
		Fluctuation:  CycleFluctuationStats(history, prediction),
		Status:       dashboardStatus(len(sorted), cycleDay, prediction),
	}
}

func dashboardStatus(recordCount int, cycleDay *CycleDay, prediction *CyclePrediction) DashboardStatus {
	switch {
	case recordCount == 0:
		return StatusNoData
	case cycleDay != nil && cycleDay.Stale:
		return StatusStale
	case prediction == nil || recordCount == 1:
		return StatusSinglePeriod
	default:
		return StatusNormal
	}
}

// OngoingDay returns the ongoing period and today's 1-based day within it.
func (snapshot Snapshot) OngoingDay() (models.Period, int, bool) {
	ongoing, ok := OngoingPeriod(snapshot.Periods)
	if !ok {
		return models.Period{}, 0, false
	}
	start, err := ParseDate(ongoing.StartDate)
	if err != nil {
		return models.Period{}, 0, false
	}
	today, err := ParseDate(snapshot.Today)
	if err != nil {
		return models.Period{}, 0, false
	}
	return ongoing, DaysBetween(start, today) + 1, true
}
