package services

import (
	"time"

	"github.com/terraincognita07/lua/internal/models"
)

type predictionSource int

const (
	predictionRecompute predictionSource = iota
	predictionProvided
	predictionAbsent
)

// PredictionOption tells a consumer where its prediction comes from. The
// zero value recomputes from the records; NoPrediction states a known
// absence that must not be recomputed.
type PredictionOption struct {
	source     predictionSource
	prediction CyclePrediction
}

func RecomputePrediction() PredictionOption {
	return PredictionOption{source: predictionRecompute}
}

func ProvidedPrediction(prediction CyclePrediction) PredictionOption {
	return PredictionOption{source: predictionProvided, prediction: prediction}
}

func NoPrediction() PredictionOption {
	return PredictionOption{source: predictionAbsent}
}

// PredictionFrom wraps an already computed, possibly nil, prediction.
func PredictionFrom(prediction *CyclePrediction) PredictionOption {
	if prediction == nil {
		return NoPrediction()
	}
	return ProvidedPrediction(*prediction)
}

func (option PredictionOption) Resolve(periods []models.Period, today time.Time) *CyclePrediction {
	switch option.source {
	case predictionProvided:
		prediction := option.prediction
		return &prediction
	case predictionAbsent:
		return nil
	default:
		return PredictNextPeriod(periods, DefaultPredictionWindow, today)
	}
}
