package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/graph"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/models"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/runledger"
	"github.com/akshay-gera/Winnipeg-Transit-ELT-Pipeline/internal/warehouse"
)

type fakeLedger struct {
	states    map[string]*runledger.RunState
	healthErr error
	getErr    error
}

func (f *fakeLedger) GetRun(_ context.Context, runDate time.Time, _ []string) (*runledger.RunState, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.states[runDate.Format(models.DateLayout)], nil
}

func (f *fakeLedger) HealthCheck(context.Context) error { return f.healthErr }

type fakeFreshness struct {
	tables []warehouse.TableFreshness
	err    error
}

func (f *fakeFreshness) Freshness(context.Context) ([]warehouse.TableFreshness, error) {
	return f.tables, f.err
}

type fakeRunner struct {
	mu    sync.Mutex
	dates []string
	block chan struct{}
}

func (f *fakeRunner) Run(_ context.Context, runDate time.Time) (*graph.RunReport, error) {
	f.mu.Lock()
	f.dates = append(f.dates, runDate.Format(models.DateLayout))
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return &graph.RunReport{}, nil
}

func (f *fakeRunner) ran() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dates...)
}

func newTestHandlers(dbErr error, ledger RunLedger, fresh FreshnessSource, runner RunTrigger) *Handlers {
	return &Handlers{
		checkDB:   func(context.Context) error { return dbErr },
		ledger:    ledger,
		freshness: fresh,
		runner:    runner,
	}
}

func newTestApp(h *Handlers, authKey string) *fiber.App {
	app := fiber.New()
	h.RegisterRoutes(app, authKey)
	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func postRun(t *testing.T, app *fiber.App, date, key string) *http.Response {
	t.Helper()
	var body io.Reader
	if date != "" {
		payload, err := json.Marshal(map[string]string{"date": date})
		require.NoError(t, err)
		body = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", body)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestHealthHealthy(t *testing.T) {
	h := newTestHandlers(nil, &fakeLedger{}, &fakeFreshness{}, &fakeRunner{})
	app := newTestApp(h, "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["database"])
	assert.Equal(t, "ok", checks["ledger"])
}

func TestHealthUnhealthy(t *testing.T) {
	h := newTestHandlers(nil, &fakeLedger{healthErr: errors.New("redis down")}, &fakeFreshness{}, &fakeRunner{})
	app := newTestApp(h, "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "unhealthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Contains(t, checks["ledger"], "redis down")
}

func TestTriggerRunAccepted(t *testing.T) {
	today := time.Now().UTC().Format(models.DateLayout)
	runner := &fakeRunner{}
	app := newTestApp(newTestHandlers(nil, &fakeLedger{}, &fakeFreshness{}, runner), "")

	resp := postRun(t, app, today, "")

	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, today, body["date"])
	assert.Equal(t, "started", body["status"])

	assert.Eventually(t, func() bool {
		ran := runner.ran()
		return len(ran) == 1 && ran[0] == today
	}, time.Second, 10*time.Millisecond)
}

func TestTriggerRunDefaultsToToday(t *testing.T) {
	runner := &fakeRunner{}
	app := newTestApp(newTestHandlers(nil, &fakeLedger{}, &fakeFreshness{}, runner), "")

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.NotEmpty(t, decodeBody(t, resp)["date"])
}

func TestTriggerRunRejectsBadDate(t *testing.T) {
	runner := &fakeRunner{}
	app := newTestApp(newTestHandlers(nil, &fakeLedger{}, &fakeFreshness{}, runner), "")

	resp := postRun(t, app, "21/08/2026", "")

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, runner.ran())
}

func TestTriggerRunRejectsNonToday(t *testing.T) {
	runner := &fakeRunner{}
	app := newTestApp(newTestHandlers(nil, &fakeLedger{}, &fakeFreshness{}, runner), "")

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(models.DateLayout)
	resp := postRun(t, app, yesterday, "")

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeBody(t, resp)["error"], "current date")
	assert.Empty(t, runner.ran())
}

func TestTriggerRunConflict(t *testing.T) {
	today := time.Now().UTC().Format(models.DateLayout)
	runner := &fakeRunner{block: make(chan struct{})}
	defer close(runner.block)
	app := newTestApp(newTestHandlers(nil, &fakeLedger{}, &fakeFreshness{}, runner), "")

	first := postRun(t, app, today, "")
	assert.Equal(t, fiber.StatusAccepted, first.StatusCode)

	second := postRun(t, app, today, "")
	assert.Equal(t, fiber.StatusConflict, second.StatusCode)
}

func TestTriggerRunRequiresKey(t *testing.T) {
	today := time.Now().UTC().Format(models.DateLayout)
	runner := &fakeRunner{}
	app := newTestApp(newTestHandlers(nil, &fakeLedger{}, &fakeFreshness{}, runner), "secret")

	denied := postRun(t, app, today, "")
	assert.Equal(t, fiber.StatusUnauthorized, denied.StatusCode)
	assert.Empty(t, runner.ran())

	wrong := postRun(t, app, today, "guess")
	assert.Equal(t, fiber.StatusUnauthorized, wrong.StatusCode)

	granted := postRun(t, app, today, "secret")
	assert.Equal(t, fiber.StatusAccepted, granted.StatusCode)
}

func TestGetRun(t *testing.T) {
	ledger := &fakeLedger{states: map[string]*runledger.RunState{
		"2026-08-21": {
			Date:   "2026-08-21",
			Status: "succeeded",
			Nodes: map[string]runledger.NodeState{
				"extract_routes": {Status: "succeeded", Attempts: 1},
			},
		},
	}}
	app := newTestApp(newTestHandlers(nil, ledger, &fakeFreshness{}, &fakeRunner{}), "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/runs/2026-08-21", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "succeeded", body["status"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/v1/runs/2026-08-20", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/v1/runs/yesterday", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetRunLedgerUnavailable(t *testing.T) {
	ledger := &fakeLedger{getErr: errors.New("connection refused")}
	app := newTestApp(newTestHandlers(nil, ledger, &fakeFreshness{}, &fakeRunner{}), "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/runs/2026-08-21", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestFreshness(t *testing.T) {
	fresh := &fakeFreshness{tables: []warehouse.TableFreshness{
		{Table: "stg_routes", LatestDate: "2026-08-21", Rows: 312},
	}}
	app := newTestApp(newTestHandlers(nil, &fakeLedger{}, fresh, &fakeRunner{}), "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/freshness", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	tables := body["tables"].([]any)
	require.Len(t, tables, 1)
	entry := tables[0].(map[string]any)
	assert.Equal(t, "stg_routes", entry["table"])
	assert.Equal(t, float64(312), entry["rows"])
}
