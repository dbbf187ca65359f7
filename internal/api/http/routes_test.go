package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mavillena/aemet-track/internal/climate"
	"github.com/mavillena/aemet-track/internal/logger"
	"github.com/mavillena/aemet-track/internal/store"
)

type stubSource struct {
	current []climate.Observation
}

func (s *stubSource) FetchYear(context.Context, int) ([]climate.Observation, error) {
	return nil, nil
}

func (s *stubSource) FetchCurrentYear(context.Context, int) ([]climate.Observation, error) {
	return s.current, nil
}

func testApp(t *testing.T, source climate.Source, st climate.Store) *fiber.App {
	t.Helper()
	log := logger.NewLogger(slog.LevelError, io.Discard)
	service := climate.NewService(source, st, log, nil, climate.Params{FirstYear: 2020})

	app := fiber.New()
	RegisterRoutes(app, service)
	return app
}

func seedSummary(t *testing.T, st climate.Store) *climate.Summary {
	t.Helper()
	var days []climate.Observation
	for d := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC); d.Year() == 2021; d = d.AddDate(0, 0, 1) {
		days = append(days, climate.Observation{Date: d, TMax: "20,0", TMed: "14,0", TMin: "8,0", Prec: "2,5"})
	}
	rec, err := climate.NormalizeYear(2021, days)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	summary, err := climate.Aggregate(climate.History{rec})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if err = st.SaveSummary(context.Background(), summary); err != nil {
		t.Fatalf("save summary: %v", err)
	}
	return summary
}

func get(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func TestSummaryNotStored(t *testing.T) {
	app := testApp(t, &stubSource{}, store.NewMemoryStore())
	resp := get(t, app, "/api/v1/climate/summary")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSummaryReturned(t *testing.T) {
	st := store.NewMemoryStore()
	app := testApp(t, &stubSource{}, st)
	seedSummary(t, st)

	resp := get(t, app, "/api/v1/climate/summary")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		TMax []float64 `json:"tmax"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.TMax) != climate.DaysPerYear || body.TMax[0] != 20.0 {
		t.Errorf("tmax = len %d, [0] = %v", len(body.TMax), body.TMax[0])
	}
}

func TestSummaryDayQueryValidation(t *testing.T) {
	st := store.NewMemoryStore()
	app := testApp(t, &stubSource{}, st)
	seedSummary(t, st)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"missing day", "/api/v1/climate/summary/day", http.StatusBadRequest},
		{"day out of range", "/api/v1/climate/summary/day?day=365", http.StatusBadRequest},
		{"negative day", "/api/v1/climate/summary/day?day=-1", http.StatusBadRequest},
		{"first day", "/api/v1/climate/summary/day?day=0", http.StatusOK},
		{"last day", "/api/v1/climate/summary/day?day=364", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := get(t, app, tc.path)
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestSummaryDayValues(t *testing.T) {
	st := store.NewMemoryStore()
	app := testApp(t, &stubSource{}, st)
	seedSummary(t, st)

	resp := get(t, app, "/api/v1/climate/summary/day?day=100")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Day       int     `json:"day"`
		TMax      float64 `json:"tmax"`
		RecordMin float64 `json:"recordMin"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Day != 100 || body.TMax != 20.0 || body.RecordMin != 8.0 {
		t.Errorf("unexpected day payload: %+v", body)
	}
}

func TestRecordsEndpoint(t *testing.T) {
	st := store.NewMemoryStore()
	thisYear := time.Now().UTC().Year()
	source := &stubSource{current: []climate.Observation{
		{Date: time.Date(thisYear, time.January, 1, 0, 0, 0, 0, time.UTC), TMax: "25,0", TMin: "10,0"},
	}}
	app := testApp(t, source, st)
	seedSummary(t, st)

	resp := get(t, app, "/api/v1/climate/records")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Year           int                   `json:"year"`
		NewRecordHighs []climate.RecordEvent `json:"newRecordHighs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Year != thisYear {
		t.Errorf("year = %d, want %d", body.Year, thisYear)
	}
	// TMax 25.0 beats the single-year record high of 20.0 on day 0.
	if len(body.NewRecordHighs) != 1 || body.NewRecordHighs[0].Day != 0 {
		t.Errorf("newRecordHighs = %+v", body.NewRecordHighs)
	}
}

func TestComparisonNotStored(t *testing.T) {
	app := testApp(t, &stubSource{}, store.NewMemoryStore())
	resp := get(t, app, "/api/v1/climate/comparison")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
