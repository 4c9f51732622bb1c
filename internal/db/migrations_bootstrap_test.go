package db

import (
	"errors"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"

	embeddedmigrations "github.com/terraincognita07/lua/migrations"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestOpenSQLiteAppliesEmbeddedMigrationsOnCleanDatabase(t *testing.T) {
	databasePath := filepath.Join(t.TempDir(), "lua-clean.db")
	database := openSQLiteForMigrationBootstrapTest(t, databasePath)

	assertTableColumns(t, database, "periods", "id", "start_date", "end_date", "created_at", "updated_at")
	assertTableColumns(t, database, "app_meta", "key", "value")
	assertAllEmbeddedMigrationsApplied(t, database)
}

func TestOpenSQLiteMigrationBootstrapIsIdempotent(t *testing.T) {
	databasePath := filepath.Join(t.TempDir(), "lua-idempotent.db")

	first := openSQLiteForMigrationBootstrapTest(t, databasePath)
	if err := first.Exec(`INSERT INTO periods(start_date, end_date) VALUES ('2023-01-01', '2023-01-04')`).Error; err != nil {
		t.Fatalf("seed period: %v", err)
	}
	if err := CloseSQLite(first); err != nil {
		t.Fatalf("close first handle: %v", err)
	}

	second := openSQLiteForMigrationBootstrapTest(t, databasePath)
	assertAllEmbeddedMigrationsApplied(t, second)

	var count int64
	if err := second.Table("periods").Count(&count).Error; err != nil {
		t.Fatalf("count periods: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected reopened database to keep 1 period, got %d", count)
	}
}

func TestApplyMigrationsSkipsExistingColumns(t *testing.T) {
	database := openSQLiteForMigrationBootstrapTest(t, filepath.Join(t.TempDir(), "lua-columns.db"))
	if err := database.Exec(`ALTER TABLE periods ADD COLUMN note TEXT`).Error; err != nil {
		t.Fatalf("pre-add column: %v", err)
	}

	source := fstest.MapFS{
		"003_period_note.sql": {Data: []byte("ALTER TABLE periods ADD COLUMN note TEXT;")},
	}
	if err := applyMigrations(database, source, zap.NewNop()); err != nil {
		t.Fatalf("expected existing column to be skipped, got %v", err)
	}

	records := loadMigrationRecords(t, database)
	if records[len(records)-1].Name != "003_period_note.sql" {
		t.Fatalf("expected 003_period_note.sql to be recorded, got %+v", records)
	}
}

func TestApplyMigrationsRejectsBadSources(t *testing.T) {
	database := openSQLiteForMigrationBootstrapTest(t, filepath.Join(t.TempDir(), "lua-bad.db"))

	empty := fstest.MapFS{"010_empty.sql": {Data: []byte(" ;\n")}}
	if err := applyMigrations(database, empty, zap.NewNop()); !errors.Is(err, errMigrationWithoutContent) {
		t.Fatalf("expected errMigrationWithoutContent, got %v", err)
	}

	duplicate := fstest.MapFS{
		"011_a.sql": {Data: []byte("SELECT 1;")},
		"011_b.sql": {Data: []byte("SELECT 1;")},
	}
	err := applyMigrations(database, duplicate, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "duplicate migration version 11") {
		t.Fatalf("expected duplicate version error, got %v", err)
	}
}

func TestSplitSQLStatements(t *testing.T) {
	got := splitSQLStatements("CREATE TABLE a (id INTEGER);\n\n  ;CREATE INDEX b ON a(id);  ")
	want := []string{"CREATE TABLE a (id INTEGER)", "CREATE INDEX b ON a(id)"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func openSQLiteForMigrationBootstrapTest(t *testing.T, databasePath string) *gorm.DB {
	t.Helper()

	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return database
}

func assertTableColumns(t *testing.T, database *gorm.DB, tableName string, expected ...string) {
	t.Helper()

	columns := loadTableColumns(t, database, tableName)
	for _, column := range expected {
		if _, ok := columns[column]; !ok {
			t.Fatalf("expected column %s.%s to exist, got %v", tableName, column, columns)
		}
	}
}

func assertAllEmbeddedMigrationsApplied(t *testing.T, database *gorm.DB) {
	t.Helper()

	expectedVersions := embeddedMigrationVersionsForTest(t)
	actualVersions := make([]string, 0)
	for _, record := range loadMigrationRecords(t, database) {
		actualVersions = append(actualVersions, record.Version)
	}

	if !reflect.DeepEqual(expectedVersions, actualVersions) {
		t.Fatalf("unexpected applied migration versions: expected=%v actual=%v", expectedVersions, actualVersions)
	}
}

type migrationRecord struct {
	Version string `gorm:"column:version"`
	Name    string `gorm:"column:name"`
}

func loadMigrationRecords(t *testing.T, database *gorm.DB) []migrationRecord {
	t.Helper()

	var rows []migrationRecord
	if err := database.Raw(`SELECT version, name FROM schema_migrations ORDER BY CAST(version AS INTEGER) ASC`).Scan(&rows).Error; err != nil {
		t.Fatalf("load applied migrations: %v", err)
	}
	return rows
}

func loadTableColumns(t *testing.T, database *gorm.DB, tableName string) map[string]struct{} {
	t.Helper()

	var rows []struct {
		Name string `gorm:"column:name"`
	}
	if err := database.Raw(`PRAGMA table_info("` + tableName + `")`).Scan(&rows).Error; err != nil {
		t.Fatalf("load table_info for %s: %v", tableName, err)
	}

	columns := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		columns[row.Name] = struct{}{}
	}
	return columns
}

func embeddedMigrationVersionsForTest(t *testing.T) []string {
	t.Helper()

	migrations, err := readMigrations(embeddedmigrations.Files)
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	versions := make([]string, 0, len(migrations))
	for _, migration := range migrations {
		versions = append(versions, strconv.Itoa(migration.Version))
	}
	return versions
}
