package services

import "github.com/terraincognita07/lua/internal/models"

type Phase string

const (
	PhaseMenstrual    Phase = "menstrual"
	PhaseFollicular   Phase = "follicular"
	PhaseOvulation    Phase = "ovulation"
	PhaseLuteal       Phase = "luteal"
	PhasePremenstrual Phase = "premenstrual"

	minPhaseCycleLength   = 18
	premenstrualDaysCount = 3
)

type PhaseInfo struct {
	Phase      Phase `json:"phase"`
	DayInPhase int   `json:"dayInPhase"`
	PhaseDays  int   `json:"phaseDays"`
}

// CyclePhase classifies dayOfCycle into one of five ordered bands keyed on
// ovulation at cycleLength-14. Days past the cycle end stay premenstrual and
// keep counting. It returns nil when ovulation would not follow bleeding.
func CyclePhase(dayOfCycle int, cycleLength int, periodDuration int) *PhaseInfo {
	if periodDuration <= 0 {
		periodDuration = models.DefaultPeriodDuration
	}
	if dayOfCycle < 1 || cycleLength < minPhaseCycleLength {
		return nil
	}

	ovulationDay := cycleLength - lutealPhaseDays
	if ovulationDay <= periodDuration {
		return nil
	}
	premenstrualStart := cycleLength - premenstrualDaysCount

	switch {
	case dayOfCycle <= periodDuration:
		return &PhaseInfo{Phase: PhaseMenstrual, DayInPhase: dayOfCycle, PhaseDays: periodDuration}
	case dayOfCycle < ovulationDay:
		return &PhaseInfo{
			Phase:      PhaseFollicular,
			DayInPhase: dayOfCycle - periodDuration,
			PhaseDays:  ovulationDay - periodDuration - 1,
		}
	case dayOfCycle == ovulationDay:
		return &PhaseInfo{Phase: PhaseOvulation, DayInPhase: 1, PhaseDays: 1}
	case dayOfCycle < premenstrualStart:
		return &PhaseInfo{
			Phase:      PhaseLuteal,
			DayInPhase: dayOfCycle - ovulationDay,
			PhaseDays:  premenstrualStart - ovulationDay - 1,
		}
	default:
		return &PhaseInfo{
			Phase:      PhasePremenstrual,
			DayInPhase: dayOfCycle - premenstrualStart + 1,
			PhaseDays:  cycleLength - premenstrualStart + 1,
		}
	}
}
