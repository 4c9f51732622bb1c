package services

import "time"

const (
	lutealPhaseDays    = 14
	fertileDaysBefore  = 4
	fertileDaysAfter   = 2
	minFertilityCycle  = 18
	maxFertilityCycle  = 50
	minOvulationOffset = 5
)

type FertilityWindow struct {
	FertileStart string `json:"fertileStart"`
	FertileEnd   string `json:"fertileEnd"`
	OvulationDay string `json:"ovulationDay"`
}

// EstimateFertilityWindow places ovulation cycleLength-14 days after
// cycleStart and spans the window from 4 days before to 2 days after it.
// Cycles outside [18, 50] days have no estimate.
func EstimateFertilityWindow(cycleStart time.Time, cycleLength int) *FertilityWindow {
	if cycleLength < minFertilityCycle || cycleLength > maxFertilityCycle {
		return nil
	}
	offset := cycleLength - lutealPhaseDays
	if offset < minOvulationOffset {
		return nil
	}

	ovulation := AddDays(dateOnly(cycleStart), offset)
	return &FertilityWindow{
		FertileStart: FormatDate(AddDays(ovulation, -fertileDaysBefore)),
		FertileEnd:   FormatDate(AddDays(ovulation, fertileDaysAfter)),
		OvulationDay: FormatDate(ovulation),
	}
}
