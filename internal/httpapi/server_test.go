package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/transitlab/demandcast/dataset"
	"github.com/transitlab/demandcast/forecast"
	"github.com/transitlab/demandcast/internal/metrics"
)

// Prometheus collectors register on the default registry once per
// process.
var testMetrics = metrics.New()

const storeHeader = "Date,Route_ID,Seats_Booked,Fuel_Consumption_Liters,Total_Seats,Ticket_Price\n"

func syntheticStoreCSV(days int) string {
	var b strings.Builder
	b.WriteString(storeHeader)
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		seats := 400 + float64(i)*0.5 +
			60*math.Sin(2*math.Pi*float64(i)/float64(forecast.SeasonalPeriod)) +
			float64(i%11-5)
		day := base.AddDate(0, 0, i)
		fmt.Fprintf(&b, "%s,R1,%.1f,110,600,250\n", day.Format("02-01-2006"), seats)
	}
	return b.String()
}

func newTestServer(t *testing.T, days int) (*Server, *dataset.Store) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bookings.csv")
	if err := os.WriteFile(path, []byte(syntheticStoreCSV(days)), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := dataset.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	obs, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	runner, err := forecast.NewRunner(forecast.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(store, runner, obs, logger, testMetrics, "*"), store
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, 20)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestForecastRejectsOutOfRangeHorizon(t *testing.T) {
	s, _ := newTestServer(t, 20)
	router := s.Router()

	for _, h := range []string{"0", "6", "91", "-5"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/forecast?horizon="+h, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("horizon=%s: expected 400, got %d", h, rec.Code)
		}
	}
}

func TestForecastRejectsMalformedHorizon(t *testing.T) {
	s, _ := newTestServer(t, 20)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/forecast?horizon=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestForecastTooLittleData(t *testing.T) {
	s, _ := newTestServer(t, 5)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/forecast?horizon=30", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", rec.Code)
	}
}

func TestForecastEndToEnd(t *testing.T) {
	s, _ := newTestServer(t, 300)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/forecast?horizon=30", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp forecastResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Forecast) != 30 {
		t.Errorf("Expected 30 forecast points, got %d", len(resp.Forecast))
	}
	if resp.Forecast[0].Date != "2023-10-28" {
		// 300 days from 2023-01-01 ends 2023-10-27.
		t.Errorf("Expected first forecast date 2023-10-28, got %s", resp.Forecast[0].Date)
	}
	if resp.RMSE < 0 {
		t.Errorf("RMSE must be non-negative, got %f", resp.RMSE)
	}
	if resp.PeakDemand < resp.LowDemand {
		t.Errorf("Peak %f below low %f", resp.PeakDemand, resp.LowDemand)
	}
	if len(resp.Series) != 300 {
		t.Errorf("Expected 300 series points, got %d", len(resp.Series))
	}
}

func TestSeriesEndpoint(t *testing.T) {
	s, _ := newTestServer(t, 20)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/series", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp map[string][]point
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp["series"]) != 20 {
		t.Errorf("Expected 20 points, got %d", len(resp["series"]))
	}
}

func TestUploadSchemaMismatch(t *testing.T) {
	s, store := newTestServer(t, 20)

	before, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}

	// Missing Ticket_Price.
	body := "Date,Route_ID,Seats_Booked,Fuel_Consumption_Liters,Total_Seats\n" +
		"01-02-2023,R9,25,100,600\n"
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/upload", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}

	after, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Errorf("Store modified by rejected upload")
	}
}

func TestUploadAppendsAndReloads(t *testing.T) {
	s, _ := newTestServer(t, 20)
	router := s.Router()

	body := storeHeader + "01-02-2023,R9,25,100,600,250\n"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/upload", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.RowsAppended != 1 {
		t.Errorf("Expected 1 row appended, got %d", resp.RowsAppended)
	}

	// The session data must reflect the upload without a restart.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/series", nil))
	var series map[string][]point
	if err := json.NewDecoder(rec.Body).Decode(&series); err != nil {
		t.Fatal(err)
	}
	if len(series["series"]) != 21 {
		t.Errorf("Expected 21 points after upload, got %d", len(series["series"]))
	}
}
