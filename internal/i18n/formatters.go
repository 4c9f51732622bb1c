package i18n

// Countdown describes the days left until the next period, or how late it is.
func (manager *Manager) Countdown(lang string, daysUntil int) string {
	switch {
	case daysUntil > 0:
		return manager.TranslatePlural(lang, "status.period_in", "Days", daysUntil)
	case daysUntil == 0:
		return manager.Translate(lang, "status.period_today")
	default:
		return manager.TranslatePlural(lang, "status.period_overdue", "Days", -daysUntil)
	}
}

func (manager *Manager) PhaseLabel(lang string, phase string) string {
	return manager.Translate(lang, "phase."+phase)
}

func (manager *Manager) ConfidenceLabel(lang string, confidence string) string {
	return manager.Translate(lang, "confidence."+confidence)
}

// StatusText is the headline for a dashboard status. day is only used by
// the normal status.
func (manager *Manager) StatusText(lang string, status string, day int) string {
	switch status {
	case "no_data":
		return manager.Translate(lang, "status.no_data")
	case "stale":
		return manager.Translate(lang, "status.no_recent")
	case "single_period":
		return manager.Translate(lang, "status.log_more")
	default:
		return manager.TranslateData(lang, "status.day", map[string]any{"Day": day})
	}
}
