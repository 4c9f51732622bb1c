package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/lua/internal/models"
)

const (
	ExportFormatVersion   = 1
	ExportTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

	reasonEndBeforeStart = "end date before start date"
)

var (
	ErrImportInvalidJSON   = errors.New("invalid JSON file")
	ErrImportInvalidFormat = errors.New("invalid file format")
	ErrImportNoPeriods     = errors.New("no periods found in file")
)

// ExportDocument is the portable backup format shared by file export and
// cloud sync. Record IDs are never written.
type ExportDocument struct {
	Version    int            `json:"version"`
	ExportedAt string         `json:"exportedAt"`
	Periods    []ExportPeriod `json:"periods"`
}

type ExportPeriod struct {
	StartDate string  `json:"startDate"`
	EndDate   *string `json:"endDate"`
}

// ImportError pinpoints the first invalid record, 1-based.
type ImportError struct {
	Index  int
	Field  string
	Reason string
}

func (err *ImportError) Error() string {
	return fmt.Sprintf("period %d: %s", err.Index, err.Reason)
}

// MessageKey names the localized message for the failure.
func (err *ImportError) MessageKey() string {
	switch {
	case err.Field == "startDate":
		return "import.invalid_start"
	case err.Reason == reasonEndBeforeStart:
		return "import.end_before_start"
	default:
		return "import.invalid_end"
	}
}

func NewExportDocument(periods []models.Period, now time.Time) ExportDocument {
	document := ExportDocument{
		Version:    ExportFormatVersion,
		ExportedAt: now.UTC().Format(ExportTimestampLayout),
		Periods:    make([]ExportPeriod, 0, len(periods)),
	}
	for _, period := range SortPeriods(periods) {
		document.Periods = append(document.Periods, ExportPeriod{StartDate: period.StartDate, EndDate: period.EndDate})
	}
	return document
}

func MarshalExportDocument(document ExportDocument) ([]byte, error) {
	return json.MarshalIndent(document, "", "  ")
}

// ExportedAtTime parses the document timestamp; ok is false when absent or malformed.
func (document ExportDocument) ExportedAtTime() (time.Time, bool) {
	parsed, err := time.Parse(time.RFC3339Nano, document.ExportedAt)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func (document ExportDocument) Records() []models.Period {
	records := make([]models.Period, 0, len(document.Periods))
	for _, period := range document.Periods {
		records = append(records, models.Period{StartDate: period.StartDate, EndDate: period.EndDate})
	}
	return records
}

// ParseExportDocument decodes and validates an import payload. Nothing is
// returned unless every record passes, so callers never write partial data.
func ParseExportDocument(payload []byte) (ExportDocument, error) {
	return parseExportDocument(payload, false)
}

// ParseBackupDocument validates a cloud backup. Unlike a file import it may
// hold no periods, which restores an emptied store.
func ParseBackupDocument(payload []byte) (ExportDocument, error) {
	return parseExportDocument(payload, true)
}

func parseExportDocument(payload []byte, allowEmpty bool) (ExportDocument, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return ExportDocument{}, ErrImportInvalidFormat
		}
		return ExportDocument{}, ErrImportInvalidJSON
	}
	if raw == nil {
		return ExportDocument{}, ErrImportInvalidFormat
	}

	var entries []any
	rawPeriods, ok := raw["periods"]
	if !ok || json.Unmarshal(rawPeriods, &entries) != nil || entries == nil {
		return ExportDocument{}, ErrImportNoPeriods
	}
	if len(entries) == 0 && !allowEmpty {
		return ExportDocument{}, ErrImportNoPeriods
	}

	document := ExportDocument{Version: ExportFormatVersion, Periods: make([]ExportPeriod, 0, len(entries))}
	if rawVersion, ok := raw["version"]; ok {
		_ = json.Unmarshal(rawVersion, &document.Version)
	}
	if rawExportedAt, ok := raw["exportedAt"]; ok {
		_ = json.Unmarshal(rawExportedAt, &document.ExportedAt)
	}

	for index, entry := range entries {
		fields, _ := entry.(map[string]any)
		period, err := validateImportEntry(index+1, fields)
		if err != nil {
			return ExportDocument{}, err
		}
		document.Periods = append(document.Periods, period)
	}
	return document, nil
}

func validateImportEntry(position int, entry map[string]any) (ExportPeriod, error) {
	start, ok := entry["startDate"].(string)
	if !ok || !IsValidDate(start) {
		return ExportPeriod{}, &ImportError{Index: position, Field: "startDate", Reason: "invalid start date"}
	}

	period := ExportPeriod{StartDate: start}
	rawEnd, present := entry["endDate"]
	if !present || rawEnd == nil {
		return period, nil
	}
	end, ok := rawEnd.(string)
	if !ok || !IsValidDate(end) {
		return ExportPeriod{}, &ImportError{Index: position, Field: "endDate", Reason: "invalid end date"}
	}
	if end < start {
		return ExportPeriod{}, &ImportError{Index: position, Field: "endDate", Reason: reasonEndBeforeStart}
	}
	period.EndDate = &end
	return period, nil
}
