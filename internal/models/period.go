package models

import "time"

const (
	DefaultCycleLength    = 28
	DefaultPeriodDuration = 5
)

// Period is one logged bleeding interval. Dates are calendar dates in
// YYYY-MM-DD form; a nil EndDate marks a period that is still ongoing.
type Period struct {
	ID        uint      `gorm:"primaryKey" json:"id,omitempty"`
	StartDate string    `gorm:"type:text;not null;index" json:"startDate"`
	EndDate   *string   `gorm:"type:text" json:"endDate"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (period Period) Ongoing() bool {
	return period.EndDate == nil
}

// EndOrStart returns the end date, or the start date for an ongoing period.
func (period Period) EndOrStart() string {
	if period.EndDate == nil {
		return period.StartDate
	}
	return *period.EndDate
}

func StringPtr(value string) *string {
	return &value
}
