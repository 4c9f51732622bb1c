package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/terraincognita07/lua/internal/i18n"
	"github.com/terraincognita07/lua/internal/services"
)

const (
	statusForecastRows = 3
	statusHistoryRows  = 3
)

// RenderStatus draws the dashboard for one snapshot as a bordered panel.
func RenderStatus(snapshot services.Snapshot, manager *i18n.Manager, lang string) string {
	day := 0
	if snapshot.CycleDay != nil {
		day = snapshot.CycleDay.Day
	}

	lines := []string{
		titleStyle.Render("Lua · " + snapshot.Today),
		headlineStyle.Render(manager.StatusText(lang, string(snapshot.Status), day)),
	}

	if _, ongoingDay, ok := snapshot.OngoingDay(); ok {
		lines = append(lines, manager.TranslateData(lang, "status.during_period", map[string]any{"Day": ongoingDay}))
	} else if snapshot.CycleDay != nil && snapshot.CycleDay.DaysUntilNext != nil {
		countdown := manager.Countdown(lang, *snapshot.CycleDay.DaysUntilNext)
		if *snapshot.CycleDay.DaysUntilNext < 0 {
			countdown = warningStyle.Render(countdown)
		}
		lines = append(lines, countdown)
	}

	if snapshot.Phase != nil {
		lines = append(lines, fmt.Sprintf("%s (%d/%d)", manager.PhaseLabel(lang, string(snapshot.Phase.Phase)), snapshot.Phase.DayInPhase, snapshot.Phase.PhaseDays))
	}

	if prediction := snapshot.Prediction; prediction != nil {
		end := prediction.PredictedEnd
		lines = append(lines,
			predictedStyle.Render(manager.Translate(lang, "forecast.next")+": "+services.FormatDateRange(prediction.PredictedStart, &end)),
			mutedStyle.Render(manager.ConfidenceLabel(lang, string(prediction.Confidence))),
		)
	}

	if stats := snapshot.Fluctuation; stats != nil {
		lines = append(lines, mutedStyle.Render(manager.TranslateData(lang, "stats.fluctuation", map[string]any{
			"Min": stats.MinCycleLength,
			"Max": stats.MaxCycleLength,
		})))
		if stats.AvgCycleLength > 0 {
			lines = append(lines, mutedStyle.Render(manager.TranslateData(lang, "stats.avg_cycle", map[string]any{"Days": stats.AvgCycleLength})))
		}
	}

	if len(snapshot.FutureCycles) > 0 {
		lines = append(lines, sectionStyle.Render(manager.Translate(lang, "forecast.title")))
		for _, cycle := range head(snapshot.FutureCycles, statusForecastRows) {
			end := cycle.PredictedEnd
			row := predictedStyle.Render(services.FormatDateRange(cycle.PredictedStart, &end))
			if cycle.Fertility != nil {
				row += "  " + fertileStyle.Render("◆ "+cycle.Fertility.OvulationDay)
			}
			lines = append(lines, row)
		}
	}

	if len(snapshot.History) > 0 {
		lines = append(lines, sectionStyle.Render(manager.Translate(lang, "history.title")))
		for _, cycle := range head(services.ReverseCycles(snapshot.History), statusHistoryRows) {
			lines = append(lines, services.FormatDateRange(cycle.StartDate, cycle.EndDate)+"  "+mutedStyle.Render(cycleLengthLabel(manager, lang, cycle)))
		}
	}

	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func RunStatusCommand(out io.Writer, service *services.PeriodService, manager *i18n.Manager, lang string) error {
	snapshot, err := service.Snapshot()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	_, err = fmt.Fprintln(out, RenderStatus(snapshot, manager, lang))
	return err
}

func cycleLengthLabel(manager *i18n.Manager, lang string, cycle services.CycleInfo) string {
	switch {
	case cycle.CycleLength == 0:
		return "—"
	case cycle.Estimated:
		return manager.TranslateData(lang, "history.est_days", map[string]any{"Days": cycle.CycleLength})
	default:
		return manager.TranslateData(lang, "history.days", map[string]any{"Days": cycle.CycleLength})
	}
}

func head[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
