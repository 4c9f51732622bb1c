package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/terraincognita07/lua/internal/i18n"
	"github.com/terraincognita07/lua/internal/services"
)

// RunExportCommand writes the export document to path, or to out when path
// is empty or "-".
func RunExportCommand(out io.Writer, service *services.PeriodService, path string) error {
	payload, err := service.ExportJSON()
	if err != nil {
		return fmt.Errorf("export periods: %w", err)
	}

	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		_, err := fmt.Fprintln(out, string(payload))
		return err
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o600); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	_, err = fmt.Fprintf(out, "✅ %s\n", path)
	return err
}

// RunImportCommand replaces all stored periods with the document at path.
// Validation failures are reported in the requested language.
func RunImportCommand(out io.Writer, service *services.PeriodService, manager *i18n.Manager, lang string, path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	count, err := service.Import(payload)
	if err != nil {
		return errors.New(importErrorMessage(manager, lang, err))
	}
	_, err = fmt.Fprintln(out, "✅ "+manager.TranslatePlural(lang, "settings.imported", "Count", count))
	return err
}

func importErrorMessage(manager *i18n.Manager, lang string, err error) string {
	var importErr *services.ImportError
	switch {
	case errors.As(err, &importErr):
		return manager.TranslateData(lang, importErr.MessageKey(), map[string]any{"Index": importErr.Index})
	case errors.Is(err, services.ErrImportInvalidJSON):
		return manager.Translate(lang, "import.invalid_json")
	case errors.Is(err, services.ErrImportInvalidFormat):
		return manager.Translate(lang, "import.invalid_format")
	case errors.Is(err, services.ErrImportNoPeriods):
		return manager.Translate(lang, "import.no_periods")
	default:
		return manager.Translate(lang, "error.save_failed")
	}
}
