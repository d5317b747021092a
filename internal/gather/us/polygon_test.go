package us

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Waknis/stat-arb-engine/internal/domain"
	"github.com/Waknis/stat-arb-engine/internal/gather"
)

func newPolygon(url string) *PolygonSource {
	return NewPolygonSource(PolygonOptions{APIKey: "poly", BaseURL: url, BarMinutes: 1, MaxRetries: 3})
}

func TestPolygonSourcePagination(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apiKey") != "poly" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Query().Get("cursor") == "p2":
			fmt.Fprint(w, `{"status":"OK","resultsCount":1,"results":[
				{"t":1709562720000,"o":102,"h":102,"l":102,"c":102,"v":300,"vw":102,"n":7}]}`)
		case strings.HasPrefix(r.URL.Path, "/v2/aggs/ticker/AAPL/range/1/minute/"):
			if r.URL.Query().Get("adjusted") != "true" || r.URL.Query().Get("limit") != "50000" {
				t.Errorf("query = %q, want adjusted=true&limit=50000", r.URL.RawQuery)
			}
			fmt.Fprintf(w, `{"status":"OK","resultsCount":2,"results":[
				{"t":1709562600000,"o":100,"h":100,"l":100,"c":100,"v":100,"vw":100,"n":3},
				{"t":1709562660000,"o":101,"h":101,"l":101,"c":101,"v":200,"vw":101,"n":5}],
				"next_url":"%s/v2/aggs/ticker/AAPL/range/1/minute/x/y?cursor=p2"}`, srvURL)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	r, _ := gather.ParseDateRange("2024-03-04", "2024-03-04")
	bars, err := newPolygon(srv.URL).FetchBars(context.Background(), "aapl", r)
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("FetchBars returned %d bars, want 3", len(bars))
	}
	for i, want := range []float64{100, 101, 102} {
		if bars[i].Close != want {
			t.Errorf("bar[%d].Close = %v, want %v", i, bars[i].Close, want)
		}
	}
	if bars[2].TradeCount != 7 || bars[2].Symbol != "AAPL" {
		t.Errorf("bar[2] = %+v", bars[2])
	}
	if got := bars[0].Timestamp.Format("15:04"); got != "14:30" {
		t.Errorf("bar[0] time = %s, want 14:30 UTC", got)
	}
}

func TestPolygonSourceNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"OK","resultsCount":0}`)
	}))
	defer srv.Close()

	r, _ := gather.ParseDateRange("2024-03-04", "2024-03-04")
	if _, err := newPolygon(srv.URL).FetchBars(context.Background(), "ZZZZ", r); !errors.Is(err, domain.ErrNoData) {
		t.Errorf("FetchBars error = %v, want ErrNoData", err)
	}
}

func TestPolygonSourceRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"status":"OK","resultsCount":1,"results":[{"t":1709562600000,"c":100,"v":1}]}`)
	}))
	defer srv.Close()

	r, _ := gather.ParseDateRange("2024-03-04", "2024-03-04")
	bars, err := newPolygon(srv.URL).FetchBars(context.Background(), "AAPL", r)
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if len(bars) != 1 || calls.Load() != 2 {
		t.Errorf("bars = %d, calls = %d; want 1 bar after 2 calls", len(bars), calls.Load())
	}
}

func TestPolygonSourcePermanentFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"status":"ERROR","error":"not entitled"}`)
	}))
	defer srv.Close()

	r, _ := gather.ParseDateRange("2024-03-04", "2024-03-04")
	_, err := newPolygon(srv.URL).FetchBars(context.Background(), "AAPL", r)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("FetchBars error = %v, want status 403", err)
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1 (no retry on 403)", calls.Load())
	}
}

func TestPolygonSourceMissingKey(t *testing.T) {
	src := NewPolygonSource(PolygonOptions{})
	r, _ := gather.ParseDateRange("2024-03-04", "2024-03-04")
	if _, err := src.FetchBars(context.Background(), "AAPL", r); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("FetchBars error = %v, want ErrMissingAPIKey", err)
	}
}
