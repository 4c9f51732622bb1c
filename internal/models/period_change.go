package models

type ChangeAction string

const (
	ChangeAdd    ChangeAction = "add"
	ChangeUpdate ChangeAction = "update"
	ChangeDelete ChangeAction = "delete"
)

// PeriodChange is one storage mutation produced by reconciling a calendar
// selection against stored periods. Adds carry a zero ID.
type PeriodChange struct {
	Action ChangeAction `json:"action"`
	Period Period       `json:"period"`
}
