package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rewired-gh/iskwatch/internal/alerts"
	"github.com/rewired-gh/iskwatch/internal/history"
	"github.com/rewired-gh/iskwatch/internal/models"
	"github.com/rewired-gh/iskwatch/internal/monitor"
	"github.com/rewired-gh/iskwatch/internal/notify"
)

type memPersister struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memPersister) Put(key string, v any) {
	b, _ := json.Marshal(v)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
}

func (m *memPersister) Load(key string, v any) bool {
	m.mu.Lock()
	b, ok := m.data[key]
	m.mu.Unlock()
	return ok && json.Unmarshal(b, v) == nil
}

type fakeProvider struct {
	snap models.PriceSnapshot
}

func (p fakeProvider) GetBestPrices(context.Context, int64, int64) (models.PriceSnapshot, error) {
	return p.snap, nil
}

type fakePermissions struct {
	perm notify.Permission
}

func (f *fakePermissions) Permission(context.Context) notify.Permission { return f.perm }

func (f *fakePermissions) RequestPermission(context.Context) notify.Permission {
	f.perm = notify.PermissionGranted
	return f.perm
}

type testEnv struct {
	handler   http.Handler
	store     *alerts.Store
	history   *history.Log
	triggered *history.Triggered
	monitor   *monitor.Monitor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	p := &memPersister{data: make(map[string][]byte)}
	store := alerts.NewStore(p, alerts.StoreConfig{
		DefaultRegionID:   10000002,
		SuppressionWindow: alerts.DefaultSuppressionWindow,
	})
	log := history.NewLog(p, history.DefaultLimit)
	pending := history.NewTriggered(p)
	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{History: log, Triggered: pending})
	m := monitor.New(monitor.Deps{
		Store:     store,
		Provider:  fakeProvider{snap: models.PriceSnapshot{BestBid: 4.5, BestAsk: 4.8}},
		Notifier:  dispatcher,
		History:   log,
		Triggered: pending,
	}, monitor.DefaultConfig())
	t.Cleanup(m.Stop)

	srv := New(Config{Address: "127.0.0.1:0"}, Deps{
		Store:       store,
		Monitor:     m,
		History:     log,
		Triggered:   pending,
		Permissions: &fakePermissions{perm: notify.PermissionDefault},
	})
	return &testEnv{handler: srv.Handler(), store: store, history: log, triggered: pending, monitor: m}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if err := json.Unmarshal(resp.Data, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("expected error body")
	}
	return resp.Error.Code
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	decodeData(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/health", "")
	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "iskwatch_http_requests_total") {
		t.Error("HTTP metrics not exported")
	}
}

func TestAlertLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/alerts",
		`{"itemId":34,"itemName":"Tritanium","alertType":"price_below","threshold":5}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created CreatedAlert
	decodeData(t, rec, &created)
	if created.ID == "" {
		t.Fatal("expected an id")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/alerts/"+created.ID, "")
	var a models.Alert
	decodeData(t, rec, &a)
	if !a.Enabled || a.RegionID != 10000002 || a.LastChecked != nil {
		t.Errorf("unexpected new alert %+v", a)
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/alerts/"+created.ID, `{"threshold":4}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d", rec.Code)
	}
	decodeData(t, rec, &a)
	if a.Threshold != 4 {
		t.Errorf("threshold = %v, want 4", a.Threshold)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/alerts/"+created.ID+"/toggle", "")
	decodeData(t, rec, &a)
	if a.Enabled {
		t.Error("toggle should disable")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/alerts", "")
	var list []models.Alert
	decodeData(t, rec, &list)
	if len(list) != 1 {
		t.Errorf("list has %d alerts, want 1", len(list))
	}

	if rec := env.do(t, http.MethodDelete, "/api/v1/alerts/"+created.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/alerts/"+created.ID, "")
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != ErrCodeNotFound {
		t.Errorf("get after delete: status = %d", rec.Code)
	}
}

func TestCreateAlertErrors(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"malformed json", `{"itemId":`, ErrCodeBadRequest},
		{"unknown field", `{"itemId":34,"bogus":1}`, ErrCodeBadRequest},
		{"empty body", "", ErrCodeBadRequest},
		{"zero threshold", `{"itemId":34,"alertType":"price_above","threshold":0}`, ErrCodeValidationFailed},
		{"unknown type", `{"itemId":34,"alertType":"margin","threshold":1}`, ErrCodeValidationFailed},
		{"bad item", `{"itemId":-1,"alertType":"price_above","threshold":1}`, ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/alerts", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("code = %s, want %s", code, tt.wantCode)
			}
		})
	}
	if len(env.store.List()) != 0 {
		t.Error("rejected definitions must not be stored")
	}
}

func TestCheckOneWithSnapshotAndDismiss(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.store.Create(models.AlertDefinition{
		ItemID: 34, ItemName: "Tritanium", Type: models.AlertPriceBelow, Threshold: 5,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/alerts/"+id+"/check", `{"bestBid":4.9,"bestAsk":4.99}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("check status = %d: %s", rec.Code, rec.Body.String())
	}
	var res monitor.CheckResult
	decodeData(t, rec, &res)
	if !res.Result.Triggered || res.Result.CurrentPrice != 4.99 || res.Decision != "fire" {
		t.Errorf("unexpected check result %+v", res)
	}
	if env.history.Len() != 1 || env.triggered.Len() != 1 {
		t.Fatalf("history=%d triggered=%d, want 1 and 1", env.history.Len(), env.triggered.Len())
	}

	// Second check inside the window is suppressed.
	rec = env.do(t, http.MethodPost, "/api/v1/alerts/"+id+"/check", `{"bestAsk":4.98}`)
	decodeData(t, rec, &res)
	if res.Result.Status != alerts.StatusSuppressed {
		t.Errorf("status = %s, want suppressed", res.Result.Status)
	}

	triggeredID := env.triggered.List()[0].ID
	if rec := env.do(t, http.MethodDelete, "/api/v1/triggered/"+triggeredID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("dismiss status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/v1/triggered/"+triggeredID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second dismiss status = %d, want 404", rec.Code)
	}
	if env.history.Len() != 1 {
		t.Error("dismissing must not touch history")
	}
}

func TestCheckOneUnknownAlert(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/alerts/missing/check", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCheckAll(t *testing.T) {
	env := newTestEnv(t)
	for _, def := range []models.AlertDefinition{
		{ItemID: 34, Type: models.AlertPriceBelow, Threshold: 5},
		{ItemID: 35, Type: models.AlertPriceAbove, Threshold: 10},
	} {
		if _, err := env.store.Create(def); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	rec := env.do(t, http.MethodPost, "/api/v1/check", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var report monitor.CycleReport
	decodeData(t, rec, &report)
	if report.Checked != 2 || report.Fired != 1 {
		t.Errorf("checked=%d fired=%d, want 2 and 1", report.Checked, report.Fired)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/triggered", "")
	var pending []models.TriggeredAlert
	decodeData(t, rec, &pending)
	if len(pending) != 1 {
		t.Errorf("pending = %d, want 1", len(pending))
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/triggered", "")
	var dismissed DismissResponse
	decodeData(t, rec, &dismissed)
	if dismissed.Dismissed != 1 || env.triggered.Len() != 0 {
		t.Errorf("dismissed %d, remaining %d", dismissed.Dismissed, env.triggered.Len())
	}
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/api/v1/settings", `{"checkIntervalMs":1000}`)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != ErrCodeValidationFailed {
		t.Errorf("short interval: status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/settings", `{"soundEnabled":false,"checkIntervalMs":30000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var s models.Settings
	decodeData(t, rec, &s)
	if s.SoundEnabled || s.CheckIntervalMs != 30000 || !s.BrowserNotificationsEnabled {
		t.Errorf("unexpected settings %+v", s)
	}
	if env.monitor.Interval().Milliseconds() != 30000 {
		t.Errorf("monitor interval = %v", env.monitor.Interval())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/settings", "")
	decodeData(t, rec, &s)
	if s.CheckIntervalMs != 30000 {
		t.Error("settings not persisted in store")
	}
}

func TestPermission(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/notifications/permission", "")
	var p PermissionResponse
	decodeData(t, rec, &p)
	if p.Permission != string(notify.PermissionDefault) {
		t.Errorf("permission = %s, want default", p.Permission)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/notifications/permission", "")
	decodeData(t, rec, &p)
	if p.Permission != string(notify.PermissionGranted) {
		t.Errorf("permission = %s, want granted", p.Permission)
	}
}

func TestMonitorStartStopAndStats(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/monitor/start", "")
	var stats monitor.Stats
	decodeData(t, rec, &stats)
	if !stats.Running {
		t.Error("monitor should be running after start")
	}

	rec = env.do(t, http.MethodPost, "/api/v1/monitor/stop", "")
	decodeData(t, rec, &stats)
	if stats.Running {
		t.Error("monitor should be stopped")
	}

	if _, err := env.store.Create(models.AlertDefinition{ItemID: 34, Type: models.AlertPriceAbove, Threshold: 1}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/stats", "")
	decodeData(t, rec, &stats)
	if stats.Total != 1 || stats.Enabled != 1 || stats.Disabled != 0 {
		t.Errorf("unexpected counts %+v", stats.Counts)
	}
}

func TestHistoryClear(t *testing.T) {
	env := newTestEnv(t)
	env.history.Append(models.HistoryEntry{ID: "h1", AlertID: "a1"})

	rec := env.do(t, http.MethodGet, "/api/v1/history", "")
	var entries []models.HistoryEntry
	decodeData(t, rec, &entries)
	if len(entries) != 1 {
		t.Fatalf("history = %d, want 1", len(entries))
	}

	if rec := env.do(t, http.MethodDelete, "/api/v1/history", ""); rec.Code != http.StatusNoContent {
		t.Errorf("clear status = %d", rec.Code)
	}
	if env.history.Len() != 0 {
		t.Error("history not cleared")
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/nope", "")
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != ErrCodeNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}
