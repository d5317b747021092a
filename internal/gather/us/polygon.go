package us

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Waknis/stat-arb-engine/internal/domain"
	"github.com/Waknis/stat-arb-engine/internal/gather"
	"github.com/Waknis/stat-arb-engine/internal/util"
)

var _ gather.BarSource = (*PolygonSource)(nil)

// DefaultPolygonURL is the production Polygon.io REST endpoint.
const DefaultPolygonURL = "https://api.polygon.io"

// ErrMissingAPIKey is returned when a PolygonSource has no API key.
var ErrMissingAPIKey = errors.New("polygon: POLYGON_API_KEY not set")

// PolygonOptions configures a PolygonSource.
type PolygonOptions struct {
	APIKey          string
	BaseURL         string
	BarMinutes      int
	RateLimitPerMin int // 0 = unlimited
	MaxRetries      int
	RetryDelay      time.Duration
	HTTPClient      *http.Client
}

// PolygonSource fetches minute aggregates from the Polygon.io
// /v2/aggs/ticker endpoint.
type PolygonSource struct {
	apiKey     string
	baseURL    string
	multiplier int
	limiter    *util.RateLimiter
	maxRetries int
	retryDelay time.Duration
	http       *http.Client
	log        *slog.Logger
}

// NewPolygonSource creates a PolygonSource from opts.
func NewPolygonSource(opts PolygonOptions) *PolygonSource {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultPolygonURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &PolygonSource{
		apiKey:     opts.APIKey,
		baseURL:    base,
		multiplier: max(opts.BarMinutes, 1),
		limiter:    util.NewRateLimiter(opts.RateLimitPerMin, 1),
		maxRetries: max(opts.MaxRetries, 1),
		retryDelay: opts.RetryDelay,
		http:       hc,
		log:        slog.Default().With("source", "polygon"),
	}
}

// Name returns the source identifier.
func (s *PolygonSource) Name() string { return "polygon" }

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type polygonAgg struct {
	Open         float64 `json:"o"`
	High         float64 `json:"h"`
	Low          float64 `json:"l"`
	Close        float64 `json:"c"`
	Volume       float64 `json:"v"`
	VWAP         float64 `json:"vw"`
	Timestamp    int64   `json:"t"` // Unix ms, start of the window
	Transactions int64   `json:"n"`
}

type polygonAggsResponse struct {
	Ticker       string       `json:"ticker"`
	Status       string       `json:"status"`
	ResultsCount int          `json:"resultsCount"`
	Results      []polygonAgg `json:"results"`
	NextURL      string       `json:"next_url"`
	Error        string       `json:"error"`
	Message      string       `json:"message"`
}

// ---------------------------------------------------------------------------
// Fetching
// ---------------------------------------------------------------------------

// FetchBars fetches adjusted minute aggregates for symbol within r, following
// next_url pagination.
func (s *PolygonSource) FetchBars(ctx context.Context, symbol string, r gather.DateRange) ([]domain.Bar, error) {
	if s.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(symbol)

	// Polygon treats both bounds as inclusive.
	next := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/%d/minute/%d/%d?adjusted=true&sort=asc&limit=50000",
		s.baseURL, url.PathEscape(symbol), s.multiplier, r.Start.UnixMilli(), r.End.UnixMilli()-1)

	var bars []domain.Bar
	for page := 1; next != ""; page++ {
		resp, err := s.getPage(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("polygon %s page %d: %w", symbol, page, err)
		}
		for _, a := range resp.Results {
			bars = append(bars, domain.Bar{
				Symbol:     symbol,
				Timestamp:  time.UnixMilli(a.Timestamp).UTC(),
				Open:       a.Open,
				High:       a.High,
				Low:        a.Low,
				Close:      a.Close,
				Volume:     a.Volume,
				TradeCount: a.Transactions,
				VWAP:       a.VWAP,
			})
		}
		s.log.Debug("page fetched", "symbol", symbol, "page", page, "results", len(resp.Results))
		next = resp.NextURL
	}

	bars = gather.NormalizeBars(bars, r)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s %s: %w", symbol, r, domain.ErrNoData)
	}
	return bars, nil
}

// getPage performs one rate-limited, retried GET and decodes the response.
func (s *PolygonSource) getPage(ctx context.Context, rawURL string) (*polygonAggsResponse, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	q := u.Query()
	q.Set("apiKey", s.apiKey)
	u.RawQuery = q.Encode()

	var out *polygonAggsResponse
	err = util.Retry(ctx, s.maxRetries, s.retryDelay, func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		resp, err := s.do(ctx, u.String())
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	return out, err
}

func (s *PolygonSource) do(ctx context.Context, target string) (*polygonAggsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, util.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := s.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, util.Permanent(ctx.Err())
		}
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 64<<20))
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		err := fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
		if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
			return nil, err
		}
		return nil, util.Permanent(err)
	}

	var payload polygonAggsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, util.Permanent(fmt.Errorf("decoding response: %w", err))
	}
	if payload.Status == "ERROR" {
		msg := payload.Error
		if msg == "" {
			msg = payload.Message
		}
		return nil, util.Permanent(fmt.Errorf("api error: %s", msg))
	}
	return &payload, nil
}
