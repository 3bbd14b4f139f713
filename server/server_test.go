package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aluiziolira/okawa-catalog/catalog"
	"github.com/aluiziolira/okawa-catalog/config"
	"github.com/aluiziolira/okawa-catalog/models"
	"github.com/aluiziolira/okawa-catalog/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRefresher struct {
	mu      sync.Mutex
	calls   int
	running atomic.Bool
	done    chan struct{}
}

func (f *fakeRefresher) Refresh(ctx context.Context) (*models.RefreshOutcome, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.done != nil {
		f.done <- struct{}{}
	}
	return &models.RefreshOutcome{}, nil
}

func (f *fakeRefresher) Running() bool {
	return f.running.Load()
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type brokenCatalog struct{}

func (brokenCatalog) Query(context.Context, models.Filters, int, int) (*models.Page, error) {
	return nil, errors.New("database password leaked here")
}

func (brokenCatalog) Facet(context.Context, catalog.Facet) ([]string, error) {
	return nil, errors.New("boom")
}

func (brokenCatalog) Lookup(context.Context, string) (models.Article, bool, error) {
	return models.Article{}, false, errors.New("boom")
}

func (brokenCatalog) Status(context.Context) (*models.RefreshStatus, error) {
	return nil, errors.New("boom")
}

type testServer struct {
	*Server
	store     *store.Memory
	refresher *fakeRefresher
}

func newTestServer(t *testing.T, articles []models.Article) *testServer {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ManualRefreshInterval = time.Hour

	st := store.NewMemory()
	ds := catalog.NewDataset()
	if len(articles) > 0 {
		ds.Swap(articles)
	}
	svc, err := catalog.NewService(ds, st, catalog.Options{DefaultPageSize: 100, MaxPageSize: 1000, CacheSize: 16})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	ref := &fakeRefresher{done: make(chan struct{}, 4)}
	s := NewServer(cfg, svc, ref, prometheus.NewRegistry())
	t.Cleanup(s.Close)
	return &testServer{Server: s, store: st, refresher: ref}
}

func (ts *testServer) do(t *testing.T, method, target string, body []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode %s: %v (%s)", target, err, rec.Body.String())
		}
	}
	return rec, decoded
}

func sampleArticles() []models.Article {
	return []models.Article{
		{Code: "A1", Description: "Filtro aceite", Price: 100, Availability: models.AvailabilityAvailable, Category: "FILTROS", PriceList: "L1"},
		{Code: "A2", Description: "Filtro aire", Price: 50, Availability: models.AvailabilityUnavailable, Category: "FILTROS", PriceList: "L2"},
		{Code: "A3", Description: "Correa", Price: 10, Availability: models.AvailabilityInquire, Category: "CORREAS", PriceList: "L1"},
	}
}

func articleCodes(t *testing.T, body map[string]any) []string {
	t.Helper()
	raw, ok := body["articulos"].([]any)
	if !ok {
		t.Fatalf("articulos missing or not a list: %v", body["articulos"])
	}
	out := make([]string, len(raw))
	for i, item := range raw {
		out[i] = item.(map[string]any)["codigo"].(string)
	}
	return out
}

func TestArticlesPagination(t *testing.T) {
	ts := newTestServer(t, sampleArticles())

	rec, body := ts.do(t, http.MethodGet, "/articulos?limit=2&page=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if codes := articleCodes(t, body); strings.Join(codes, ",") != "A1,A2" {
		t.Fatalf("page 1 = %v", codes)
	}
	if body["ok"] != true || body["total"].(float64) != 3 || body["limit"].(float64) != 2 {
		t.Fatalf("envelope = %v", body)
	}

	_, body = ts.do(t, http.MethodGet, "/articulos?limit=2&page=2", nil)
	if codes := articleCodes(t, body); strings.Join(codes, ",") != "A3" {
		t.Fatalf("page 2 = %v", codes)
	}

	_, body = ts.do(t, http.MethodGet, "/articulos?limit=2&page=9", nil)
	if codes := articleCodes(t, body); len(codes) != 0 {
		t.Fatalf("page 9 = %v, want empty list", codes)
	}
}

func TestArticlesParameterDefaults(t *testing.T) {
	ts := newTestServer(t, sampleArticles())
	_, body := ts.do(t, http.MethodGet, "/articulos?page=abc&limit=-5", nil)
	if body["page"].(float64) != 1 || body["limit"].(float64) != 100 {
		t.Fatalf("defaults not applied: %v", body)
	}
	_, body = ts.do(t, http.MethodGet, "/articulos?limit=50000", nil)
	if body["limit"].(float64) != 1000 {
		t.Fatalf("limit not capped: %v", body["limit"])
	}
}

func TestArticlesFilters(t *testing.T) {
	ts := newTestServer(t, sampleArticles())
	tests := []struct {
		query string
		want  string
	}{
		{query: "codigo=a", want: "A1,A2,A3"},
		{query: "descripcion=filtro", want: "A1,A2"},
		{query: "disponibilidad=C", want: "A3"},
		{query: "disponibilidad=S", want: "A1"},
		{query: "rubro=correas", want: "A3"},
		{query: "lista=L1&descripcion=filtro", want: "A1"},
	}
	for _, tt := range tests {
		_, body := ts.do(t, http.MethodGet, "/articulos?"+tt.query, nil)
		if got := strings.Join(articleCodes(t, body), ","); got != tt.want {
			t.Fatalf("%s => %s, want %s", tt.query, got, tt.want)
		}
	}
}

func TestArticlesUnknownAvailabilityIsNull(t *testing.T) {
	ts := newTestServer(t, []models.Article{{Code: "U1"}})
	_, body := ts.do(t, http.MethodGet, "/articulos", nil)
	item := body["articulos"].([]any)[0].(map[string]any)
	if v, ok := item["stock"]; !ok || v != nil {
		t.Fatalf("stock = %v (present=%v), want null", v, ok)
	}
}

func TestFacets(t *testing.T) {
	ts := newTestServer(t, sampleArticles())
	_, body := ts.do(t, http.MethodGet, "/rubros", nil)
	rubros := body["rubros"].([]any)
	if len(rubros) != 2 || rubros[0] != "CORREAS" || rubros[1] != "FILTROS" {
		t.Fatalf("rubros = %v", rubros)
	}
	_, body = ts.do(t, http.MethodGet, "/listas", nil)
	if listas := body["listas"].([]any); len(listas) != 2 {
		t.Fatalf("listas = %v", listas)
	}
	_, body = ts.do(t, http.MethodGet, "/marcas", nil)
	if marcas := body["marcas"].([]any); len(marcas) != 0 {
		t.Fatalf("marcas = %v", marcas)
	}
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t, nil)
	_, body := ts.do(t, http.MethodGet, "/status", nil)
	if body["estado"] != "Sin registros" {
		t.Fatalf("status = %v", body)
	}

	err := ts.store.SaveStatus(context.Background(), models.RefreshStatus{
		Source:    "Okawa",
		UpdatedAt: time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC),
		State:     models.StateError,
		Details:   "archive entry not found: no se encontró okawa-completa.xls",
	})
	if err != nil {
		t.Fatalf("save status: %v", err)
	}
	_, body = ts.do(t, http.MethodGet, "/status", nil)
	if body["estado"] != "ERROR" || body["fuente"] != "Okawa" {
		t.Fatalf("status = %v", body)
	}
	if !strings.Contains(body["detalles"].(string), "okawa-completa.xls") {
		t.Fatalf("detalles = %v", body["detalles"])
	}
}

func TestPing(t *testing.T) {
	ts := newTestServer(t, nil)
	rec, body := ts.do(t, http.MethodGet, "/ping", nil)
	if rec.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("ping = %d %v", rec.Code, body)
	}
}

func TestManualRefresh(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, body := ts.do(t, http.MethodGet, "/actualizar", nil)
	if rec.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("first trigger = %d %v", rec.Code, body)
	}
	select {
	case <-ts.refresher.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("refresh was not started")
	}

	rec, body = ts.do(t, http.MethodGet, "/actualizar", nil)
	if rec.Code != http.StatusTooManyRequests || body["ok"] != false {
		t.Fatalf("second trigger = %d %v, want 429", rec.Code, body)
	}
	ts.Close()
	if got := ts.refresher.callCount(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
}

func TestManualRefreshWhileRunning(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.refresher.running.Store(true)

	rec, body := ts.do(t, http.MethodGet, "/actualizar", nil)
	if rec.Code != http.StatusOK || body["ok"] != false || body["mensaje"] == "" {
		t.Fatalf("trigger = %d %v", rec.Code, body)
	}
	ts.Close()
	if got := ts.refresher.callCount(); got != 0 {
		t.Fatalf("refresh calls = %d, want 0", got)
	}
}

func TestOrderQuote(t *testing.T) {
	ts := newTestServer(t, sampleArticles())
	rec, body := ts.do(t, http.MethodPost, "/pedido", []byte(`{"items":[{"codigo":"a1","cantidad":2}]}`))
	if rec.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("quote = %d %v", rec.Code, body)
	}
	pedido := body["pedido"].(map[string]any)
	if pedido["total"] != "382.8" {
		t.Fatalf("total = %v, want 382.8", pedido["total"])
	}
}

func TestOrderQuoteValidation(t *testing.T) {
	ts := newTestServer(t, sampleArticles())
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: `{"items":`},
		{name: "empty", body: `{"items":[]}`},
		{name: "unknown code", body: `{"items":[{"codigo":"ZZ","cantidad":1}]}`},
		{name: "zero quantity", body: `{"items":[{"codigo":"A1","cantidad":0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := ts.do(t, http.MethodPost, "/pedido", []byte(tt.body))
			if rec.Code != http.StatusBadRequest || body["ok"] != false || body["error"] == "" {
				t.Fatalf("response = %d %v", rec.Code, body)
			}
		})
	}
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	cfg := config.DefaultConfig()
	s := NewServer(cfg, brokenCatalog{}, &fakeRefresher{}, nil)
	t.Cleanup(s.Close)
	ts := &testServer{Server: s}

	for _, target := range []string{"/articulos", "/rubros", "/status"} {
		rec, body := ts.do(t, http.MethodGet, target, nil)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s status = %d", target, rec.Code)
		}
		if body["ok"] != false || body["error"] != msgInternal {
			t.Fatalf("%s body = %v", target, body)
		}
		if strings.Contains(rec.Body.String(), "password") {
			t.Fatalf("%s leaked internal detail", target)
		}
	}
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, nil)
	rec, _ := ts.do(t, http.MethodOptions, "/articulos", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	rec, _ := ts.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
}
