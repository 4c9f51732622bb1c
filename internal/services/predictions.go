package services

import (
	"math"
	"time"

	"github.com/terraincognita07/lua/internal/models"
)

const (
	DefaultPredictionWindow = 6

	maxCycleLength = 90
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// CyclePrediction is the forecast for the next period. It is derived from
// stored records on every load and never persisted.
type CyclePrediction struct {
	PredictedStart    string     `json:"predictedStart"`
	PredictedEnd      string     `json:"predictedEnd"`
	AvgCycleLength    int        `json:"avgCycleLength"`
	AvgPeriodDuration int        `json:"avgPeriodDuration"`
	Confidence        Confidence `json:"confidence"`
	StdDev            float64    `json:"stddev"`
	DaysLate          int        `json:"daysLate"`
}

// PredictNextPeriod forecasts the next period from the last windowSize
// cycles. It returns nil when fewer than two completed periods exist or no
// cycle length passes the (0, 90) validity filter.
func PredictNextPeriod(periods []models.Period, windowSize int, today time.Time) *CyclePrediction {
	if windowSize <= 0 {
		windowSize = DefaultPredictionWindow
	}
	today = dateOnly(today)

	dated := parsePeriods(periods)
	completed := completedPeriods(dated)
	if len(completed) < 2 {
		return nil
	}

	lengths := make([]int, 0, len(completed))
	for index := 1; index < len(completed); index++ {
		length := DaysBetween(completed[index-1].start, completed[index].start)
		if validCycleLength(length) {
			lengths = append(lengths, length)
		}
	}

	anchor := completed[len(completed)-1].start
	if ongoing, ok := latestOngoing(dated); ok && ongoing.start.After(anchor) {
		gap := DaysBetween(anchor, ongoing.start)
		if validCycleLength(gap) {
			lengths = append(lengths, gap)
		}
		anchor = ongoing.start
	}

	if len(lengths) == 0 {
		return nil
	}

	durations := make([]int, 0, len(completed))
	for _, period := range completed {
		durations = append(durations, periodDuration(period))
	}

	avgCycleLength := roundHalfUp(weightedAverage(lengths, windowSize))
	avgPeriodDuration := roundHalfUp(weightedAverage(durations, windowSize))

	predictedStart := AddDays(anchor, avgCycleLength)
	predictedEnd := AddDays(predictedStart, avgPeriodDuration-1)

	daysLate := 0
	if predictedStart.Before(today) {
		daysLate = DaysBetween(predictedStart, today)
	}

	sd := sampleStdDev(tailInts(lengths, windowSize))
	confidence := confidenceFor(sd)
	if daysLate > 0 {
		confidence = ConfidenceLow
	}

	return &CyclePrediction{
		PredictedStart:    FormatDate(predictedStart),
		PredictedEnd:      FormatDate(predictedEnd),
		AvgCycleLength:    avgCycleLength,
		AvgPeriodDuration: avgPeriodDuration,
		Confidence:        confidence,
		StdDev:            math.Round(sd*10) / 10,
		DaysLate:          daysLate,
	}
}

func validCycleLength(length int) bool {
	return length > 0 && length < maxCycleLength
}

func confidenceFor(sd float64) Confidence {
	switch {
	case sd <= 2:
		return ConfidenceHigh
	case sd <= 5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// weightedAverage averages the trailing maxCount values with weights 1..k,
// the most recent value weighing the most.
func weightedAverage(values []int, maxCount int) float64 {
	window := tailInts(values, maxCount)
	if len(window) == 0 {
		return 0
	}
	var weightedSum, totalWeight float64
	for index, value := range window {
		weight := float64(index + 1)
		weightedSum += float64(value) * weight
		totalWeight += weight
	}
	return weightedSum / totalWeight
}

// sampleStdDev is the Bessel-corrected standard deviation; 0 below two samples.
func sampleStdDev(values []int) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, value := range values {
		sum += float64(value)
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, value := range values {
		delta := float64(value) - mean
		variance += delta * delta
	}
	return math.Sqrt(variance / float64(len(values)-1))
}

func tailInts(values []int, n int) []int {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

func roundHalfUp(value float64) int {
	return int(math.Floor(value + 0.5))
}
