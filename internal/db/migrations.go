package db

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	embeddedmigrations "github.com/terraincognita07/lua/migrations"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	migrationFilePattern       = regexp.MustCompile(`^(\d+)_.*\.sql$`)
	addColumnStatementPattern  = regexp.MustCompile(`(?i)^ALTER\s+TABLE\s+([^\s]+)\s+ADD\s+COLUMN\s+([^\s]+)\b`)
	errMigrationWithoutContent = errors.New("migration has no SQL statements")
)

type schemaMigration struct {
	Version int
	Name    string
	SQL     string
}

func applyEmbeddedMigrations(database *gorm.DB, logger *zap.Logger) error {
	return applyMigrations(database, embeddedmigrations.Files, logger)
}

// applyMigrations runs every pending *.sql file of source in version order,
// each inside its own transaction.
func applyMigrations(database *gorm.DB, source fs.FS, logger *zap.Logger) error {
	const createTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
	if err := database.Exec(createTableSQL).Error; err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	pending, err := readMigrations(source)
	if err != nil {
		return err
	}

	applied := make([]string, 0)
	if err := database.Table("schema_migrations").Pluck("version", &applied).Error; err != nil {
		return fmt.Errorf("load applied migration versions: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, version := range applied {
		done[version] = true
	}

	for _, migration := range pending {
		version := strconv.Itoa(migration.Version)
		if done[version] {
			continue
		}
		if err := runMigration(database, version, migration); err != nil {
			return err
		}
		logger.Info("applied migration", zap.String("name", migration.Name))
	}
	return nil
}

func readMigrations(source fs.FS) ([]schemaMigration, error) {
	entries, err := fs.ReadDir(source, ".")
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	migrations := make([]schemaMigration, 0, len(entries))
	seen := make(map[int]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := migrationFilePattern.FindStringSubmatch(entry.Name())
		if len(matches) != 2 {
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("parse migration version from %s: %w", entry.Name(), err)
		}
		if existing, exists := seen[version]; exists {
			return nil, fmt.Errorf("duplicate migration version %d in %s and %s", version, existing, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(source, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, schemaMigration{Version: version, Name: entry.Name(), SQL: string(content)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func runMigration(database *gorm.DB, version string, migration schemaMigration) error {
	return database.Transaction(func(tx *gorm.DB) error {
		statements := splitSQLStatements(migration.SQL)
		if len(statements) == 0 {
			return fmt.Errorf("migration %s: %w", migration.Name, errMigrationWithoutContent)
		}

		for _, statement := range statements {
			exists, err := columnAlreadyAdded(tx, statement)
			if err != nil {
				return fmt.Errorf("inspect migration %s: %w", migration.Name, err)
			}
			if exists {
				continue
			}
			if err := tx.Exec(statement).Error; err != nil {
				return fmt.Errorf("execute migration %s statement %q: %w", migration.Name, statement, err)
			}
		}

		if err := tx.Exec(`INSERT INTO schema_migrations(version, name) VALUES (?, ?)`, version, migration.Name).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", migration.Name, err)
		}
		return nil
	})
}

func splitSQLStatements(sqlText string) []string {
	statements := make([]string, 0)
	for _, part := range strings.Split(sqlText, ";") {
		if statement := strings.TrimSpace(part); statement != "" {
			statements = append(statements, statement)
		}
	}
	return statements
}

// columnAlreadyAdded makes ALTER TABLE ... ADD COLUMN statements re-runnable.
func columnAlreadyAdded(database *gorm.DB, statement string) (bool, error) {
	matches := addColumnStatementPattern.FindStringSubmatch(statement)
	if len(matches) != 3 {
		return false, nil
	}
	table := strings.Trim(matches[1], "\"`[]")
	column := strings.Trim(matches[2], "\"`[]")

	columns := make([]struct {
		Name string `gorm:"column:name"`
	}, 0)
	query := fmt.Sprintf(`PRAGMA table_info("%s")`, strings.ReplaceAll(table, `"`, `""`))
	if err := database.Raw(query).Scan(&columns).Error; err != nil {
		return false, fmt.Errorf("load table_info for %s: %w", table, err)
	}
	for _, existing := range columns {
		if strings.EqualFold(existing.Name, column) {
			return true, nil
		}
	}
	return false, nil
}
