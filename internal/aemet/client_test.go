package aemet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mavillena/aemet-track/internal/logger"
)

// archiveStub serves the two-call protocol: descriptor requests under the
// climatology path redirect to /payload/<window>, which serves the day
// entries registered for that window. Windows are keyed by their start
// date ("2021-01-01").
type archiveStub struct {
	baseURL  string
	windows  map[string]string // start date -> payload JSON
	noData   map[string]bool   // start date -> answer "no hay datos"
	requests []*http.Request
}

func (a *archiveStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.requests = append(a.requests, r.Clone(r.Context()))

		if payload, ok := strings.CutPrefix(r.URL.Path, "/payload/"); ok {
			fmt.Fprint(w, a.windows[payload])
			return
		}

		// Descriptor call: /valores/climatologicos/diarios/datos/fechaini/<from>/...
		parts := strings.Split(r.URL.Path, "/fechaini/")
		if len(parts) != 2 {
			http.NotFound(w, r)
			return
		}
		start := parts[1][:10]
		if a.noData[start] {
			fmt.Fprint(w, `{"estado":404,"descripcion":"No hay datos que satisfagan esos criterios"}`)
			return
		}
		if _, ok := a.windows[start]; !ok {
			fmt.Fprint(w, `{"estado":500,"descripcion":"stub: unexpected window"}`)
			return
		}
		fmt.Fprintf(w, `{"estado":200,"datos":%q}`, a.baseURL+"/payload/"+start)
	}
}

func newArchiveStub(t *testing.T) (*archiveStub, *Client) {
	t.Helper()
	stub := &archiveStub{
		windows: map[string]string{},
		noData:  map[string]bool{},
	}
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	stub.baseURL = srv.URL

	log := logger.NewLogger(slog.LevelError, io.Discard)
	client := NewClient(srv.Client(), Config{
		APIKey:    "test-key",
		StationID: "3195",
		BaseURL:   srv.URL,
		Pace:      time.Millisecond,
	}, log, nil)
	return stub, client
}

func TestFetchYearConcatenatesHalfYears(t *testing.T) {
	stub, client := newArchiveStub(t)
	stub.windows["2021-01-01"] = `[
		{"fecha":"2021-01-01","tmax":"12,4","tmed":"8,0","tmin":"3,6","prec":"0,0"},
		{"fecha":"2021-01-02","tmax":"13,0","tmed":"9,1","tmin":"5,2","prec":"1,8"}
	]`
	stub.windows["2021-07-01"] = `[
		{"fecha":"2021-07-01","tmax":"34,2","tmed":"27,5","tmin":"20,8","prec":"0,0"}
	]`

	obs, err := client.FetchYear(context.Background(), 2021)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("got %d observations, want 3", len(obs))
	}
	if got := obs[0].Date.Format("2006-01-02"); got != "2021-01-01" {
		t.Errorf("first date = %s", got)
	}
	if got := obs[2].Date.Format("2006-01-02"); got != "2021-07-01" {
		t.Errorf("second half not appended after the first: %s", got)
	}
	// Decimal-comma formatting passes through untouched.
	if obs[1].Prec != "1,8" {
		t.Errorf("prec = %q, want %q", obs[1].Prec, "1,8")
	}
}

func TestFetchYearNoArchivedData(t *testing.T) {
	stub, client := newArchiveStub(t)
	stub.noData["2021-01-01"] = true

	_, err := client.FetchYear(context.Background(), 2021)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("error = %v, want ErrFetchFailed", err)
	}
}

func TestFetchYearArchiveError(t *testing.T) {
	_, client := newArchiveStub(t)
	// No window registered: the stub answers estado 500.
	_, err := client.FetchYear(context.Background(), 2021)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("error = %v, want ErrFetchFailed", err)
	}
}

func TestFetchCurrentYearStopsAtMissingWindow(t *testing.T) {
	stub, client := newArchiveStub(t)
	stub.windows["2026-01-01"] = `[
		{"fecha":"2026-01-01","tmax":"15,0","tmed":"10,0","tmin":"5,0","prec":"0,0"}
	]`
	stub.noData["2026-07-01"] = true

	obs, err := client.FetchCurrentYear(context.Background(), 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("got %d observations, want 1", len(obs))
	}
}

func TestFetchCurrentYearBeforeFirstPublication(t *testing.T) {
	stub, client := newArchiveStub(t)
	stub.noData["2026-01-01"] = true

	obs, err := client.FetchCurrentYear(context.Background(), 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(obs) != 0 {
		t.Fatalf("got %d observations, want none", len(obs))
	}
}

func TestFetchYearMalformedDate(t *testing.T) {
	stub, client := newArchiveStub(t)
	stub.windows["2021-01-01"] = `[{"fecha":"not-a-date","tmax":"12,4"}]`

	_, err := client.FetchYear(context.Background(), 2021)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("error = %v, want ErrFetchFailed", err)
	}
}

func TestRequestsCarryAPIKey(t *testing.T) {
	stub, client := newArchiveStub(t)
	stub.windows["2026-01-01"] = `[]`
	stub.noData["2026-07-01"] = true

	if _, err := client.FetchCurrentYear(context.Background(), 2026); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stub.requests) == 0 {
		t.Fatal("no requests recorded")
	}
	for _, req := range stub.requests {
		if req.Header.Get("api_key") != "test-key" {
			t.Errorf("%s: missing api_key header", req.URL.Path)
		}
	}
}
