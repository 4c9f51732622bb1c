package services

import (
	"testing"
	"time"

	"github.com/terraincognita07/lua/internal/models"
)

func closedPeriod(id uint, start string, end string) models.Period {
	return models.Period{ID: id, StartDate: start, EndDate: models.StringPtr(end)}
}

func openPeriod(id uint, start string) models.Period {
	return models.Period{ID: id, StartDate: start}
}

// regularPeriods are three 4-day periods spaced exactly 28 days apart.
func regularPeriods() []models.Period {
	return []models.Period{
		closedPeriod(1, "2023-01-01", "2023-01-04"),
		closedPeriod(2, "2023-01-29", "2023-02-01"),
		closedPeriod(3, "2023-02-26", "2023-03-01"),
	}
}

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	parsed, err := ParseDate(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return parsed
}

// thirtyDayPeriods averages 30 days, so a recomputed prediction differs
// from the 28-day default.
func thirtyDayPeriods() []models.Period {
	return []models.Period{
		closedPeriod(1, "2023-01-01", "2023-01-05"),
		closedPeriod(2, "2023-01-31", "2023-02-04"),
		closedPeriod(3, "2023-03-02", "2023-03-06"),
	}
}
