package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lua/internal/db"
	"github.com/terraincognita07/lua/internal/i18n"
	"github.com/terraincognita07/lua/internal/models"
	"github.com/terraincognita07/lua/internal/services"
	"go.uber.org/zap"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

type testApp struct {
	app     *fiber.App
	service *services.PeriodService
}

func newTestApp(t *testing.T, now time.Time) testApp {
	t.Helper()

	databasePath := filepath.Join(t.TempDir(), "lua-api-test.db")
	database, err := db.OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = db.CloseSQLite(database)
	})

	clock := func() time.Time { return now }
	repositories := db.NewRepositories(database)
	service := services.NewPeriodService(repositories.Periods, repositories.Meta, services.PeriodServiceConfig{
		Location: time.UTC,
		Now:      clock,
	})

	manager, err := i18n.NewManager("en")
	if err != nil {
		t.Fatalf("init i18n: %v", err)
	}
	handler, err := NewHandler(HandlerConfig{
		Periods:   service,
		I18n:      manager,
		SecretKey: testSecretKey,
		PublicURL: "https://lua.example.com",
		Now:       clock,
	})
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}
	return testApp{app: NewApp(handler), service: service}
}

func (app testApp) do(t *testing.T, method string, path string, body any, headers map[string]string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	}
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := app.app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() {
		_ = response.Body.Close()
	})
	return response
}

func decodeJSON(t *testing.T, response *http.Response, target any) {
	t.Helper()
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func seedPeriods(t *testing.T, service *services.PeriodService, ranges ...[2]string) {
	t.Helper()
	for _, item := range ranges {
		period := periodFromRange(item)
		if _, err := service.Add(period); err != nil {
			t.Fatalf("seed period %v: %v", item, err)
		}
	}
}

func periodFromRange(item [2]string) models.Period {
	period := models.Period{StartDate: item[0]}
	if item[1] != "" {
		period.EndDate = models.StringPtr(item[1])
	}
	return period
}
