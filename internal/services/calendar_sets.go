package services

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/terraincognita07/lua/internal/models"
)

const ongoingPeriodDisplayDays = 14

// DateSet is a set of YYYY-MM-DD keys. It marshals as a sorted array.
type DateSet map[string]struct{}

func NewDateSet(days ...string) DateSet {
	set := make(DateSet, len(days))
	for _, day := range days {
		set.Add(day)
	}
	return set
}

func (set DateSet) Add(day string) {
	set[day] = struct{}{}
}

func (set DateSet) Has(day string) bool {
	_, ok := set[day]
	return ok
}

func (set DateSet) Sorted() []string {
	days := make([]string, 0, len(set))
	for day := range set {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}

func (set DateSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(set.Sorted())
}

// CalendarDateSets classifies calendar days for rendering. The six sets are
// disjoint; a day belongs to the first matching set in field order.
type CalendarDateSets struct {
	PeriodDates          DateSet `json:"periodDates"`
	PredictedPeriodDates DateSet `json:"predictedPeriodDates"`
	PastOvulationDates   DateSet `json:"pastOvulationDates"`
	FutureOvulationDates DateSet `json:"futureOvulationDates"`
	PastFertilityDates   DateSet `json:"pastFertilityDates"`
	FutureFertilityDates DateSet `json:"futureFertilityDates"`
}

// Classify returns the name of the set day belongs to, or "" if none.
func (sets CalendarDateSets) Classify(day string) string {
	switch {
	case sets.PeriodDates.Has(day):
		return "period"
	case sets.PredictedPeriodDates.Has(day):
		return "predicted"
	case sets.PastOvulationDates.Has(day), sets.FutureOvulationDates.Has(day):
		return "ovulation"
	case sets.PastFertilityDates.Has(day), sets.FutureFertilityDates.Has(day):
		return "fertile"
	default:
		return ""
	}
}

// BuildDateSets derives the calendar classification from logged periods,
// the current prediction and the forecast chain. An ongoing period is drawn
// through today, at most 14 days past its start. Predicted and future days
// before today are omitted.
func BuildDateSets(periods []models.Period, prediction *CyclePrediction, futureCycles []FutureCycle, today time.Time) CalendarDateSets {
	today = dateOnly(today)
	todayKey := FormatDate(today)
	sets := CalendarDateSets{
		PeriodDates:          DateSet{},
		PredictedPeriodDates: DateSet{},
		PastOvulationDates:   DateSet{},
		FutureOvulationDates: DateSet{},
		PastFertilityDates:   DateSet{},
		FutureFertilityDates: DateSet{},
	}

	for _, period := range parsePeriods(periods) {
		end := period.end
		if period.ongoing() {
			end = MinDate(AddDays(period.start, ongoingPeriodDisplayDays), today)
		}
		for _, day := range EachDay(period.start, end) {
			sets.PeriodDates.Add(FormatDate(day))
		}
	}

	for _, cycle := range futureCycles {
		for _, key := range rangeKeys(cycle.PredictedStart, cycle.PredictedEnd) {
			if key >= todayKey && !sets.PeriodDates.Has(key) {
				sets.PredictedPeriodDates.Add(key)
			}
		}
	}

	taken := func(key string) bool {
		return sets.PeriodDates.Has(key) || sets.PredictedPeriodDates.Has(key)
	}

	history := BuildCycleHistory(periods, PredictionFrom(prediction), today)
	for _, cycle := range history {
		if cycle.Fertility == nil {
			continue
		}
		if key := cycle.Fertility.OvulationDay; !taken(key) {
			sets.PastOvulationDates.Add(key)
		}
	}
	for _, cycle := range futureCycles {
		if cycle.Fertility == nil {
			continue
		}
		key := cycle.Fertility.OvulationDay
		if key >= todayKey && !taken(key) && !sets.PastOvulationDates.Has(key) {
			sets.FutureOvulationDates.Add(key)
		}
	}

	ovulation := func(key string) bool {
		return sets.PastOvulationDates.Has(key) || sets.FutureOvulationDates.Has(key)
	}
	for _, cycle := range history {
		if cycle.Fertility == nil {
			continue
		}
		for _, key := range rangeKeys(cycle.Fertility.FertileStart, cycle.Fertility.FertileEnd) {
			if !taken(key) && !ovulation(key) {
				sets.PastFertilityDates.Add(key)
			}
		}
	}
	for _, cycle := range futureCycles {
		if cycle.Fertility == nil {
			continue
		}
		for _, key := range rangeKeys(cycle.Fertility.FertileStart, cycle.Fertility.FertileEnd) {
			if key >= todayKey && !taken(key) && !ovulation(key) && !sets.PastFertilityDates.Has(key) {
				sets.FutureFertilityDates.Add(key)
			}
		}
	}

	return sets
}

// rangeKeys enumerates [start, end] as date keys; nil for bad or inverted input.
func rangeKeys(start string, end string) []string {
	startDate, err := ParseDate(start)
	if err != nil {
		return nil
	}
	endDate, err := ParseDate(end)
	if err != nil {
		return nil
	}
	days := EachDay(startDate, endDate)
	keys := make([]string, 0, len(days))
	for _, day := range days {
		keys = append(keys, FormatDate(day))
	}
	return keys
}
