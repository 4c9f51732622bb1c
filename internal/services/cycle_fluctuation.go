package services

const fluctuationCycleWindow = 12

// CycleFluctuation summarizes how much recent exact cycle lengths vary.
type CycleFluctuation struct {
	MinCycleLength     int `json:"minCycleLength"`
	MaxCycleLength     int `json:"maxCycleLength"`
	PrevCycleLength    int `json:"prevCycleLength"`
	LastPeriodDuration int `json:"lastPeriodDuration"`
	AvgCycleLength     int `json:"avgCycleLength"`
}

// CycleFluctuationStats uses the last 12 non-estimated cycles with a valid
// length. It returns nil below two such cycles. AvgCycleLength is 0 without
// a prediction.
func CycleFluctuationStats(history []CycleInfo, prediction *CyclePrediction) *CycleFluctuation {
	exact := make([]CycleInfo, 0, len(history))
	for _, cycle := range history {
		if !cycle.Estimated && validCycleLength(cycle.CycleLength) {
			exact = append(exact, cycle)
		}
	}
	if len(exact) < 2 {
		return nil
	}
	if len(exact) > fluctuationCycleWindow {
		exact = exact[len(exact)-fluctuationCycleWindow:]
	}

	stats := &CycleFluctuation{
		MinCycleLength:     exact[0].CycleLength,
		MaxCycleLength:     exact[0].CycleLength,
		PrevCycleLength:    exact[len(exact)-2].CycleLength,
		LastPeriodDuration: exact[len(exact)-1].PeriodDuration,
	}
	for _, cycle := range exact[1:] {
		stats.MinCycleLength = min(stats.MinCycleLength, cycle.CycleLength)
		stats.MaxCycleLength = max(stats.MaxCycleLength, cycle.CycleLength)
	}
	if prediction != nil {
		stats.AvgCycleLength = prediction.AvgCycleLength
	}
	return stats
}
