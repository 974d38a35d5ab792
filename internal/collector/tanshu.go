package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"GoldSentinel/internal/metrics"
	"GoldSentinel/internal/model"
)

const (
	defaultSpotURL    = "https://api.tanshuapi.com/api/gold/v1/london"
	defaultHistoryURL = "https://api.tanshuapi.com/api/precious_metals_history/v1/kline_data"

	// MaxHistoryLimit is the largest record count the history endpoint serves.
	MaxHistoryLimit = 1000
)

var metalNames = map[string]string{
	"伦敦金":  "London Gold",
	"伦敦银":  "London Silver",
	"铂金期货": "Platinum Futures",
	"钯金期货": "Palladium Futures",
}

// TanshuClient talks to the spot and history endpoints of the metals API.
type TanshuClient struct {
	spotURL    string
	historyURL string
	httpClient HTTPClient
	key        string
	retry      RetryPolicy
	metrics    *metrics.Registry
}

// TanshuClientOption configures a TanshuClient.
type TanshuClientOption func(*TanshuClient)

// WithSpotURL overrides the spot endpoint.
func WithSpotURL(u string) TanshuClientOption {
	return func(c *TanshuClient) { c.spotURL = u }
}

// WithHistoryURL overrides the history endpoint.
func WithHistoryURL(u string) TanshuClientOption {
	return func(c *TanshuClient) { c.historyURL = u }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h HTTPClient) TanshuClientOption {
	return func(c *TanshuClient) { c.httpClient = h }
}

// WithRetry sets the retry policy.
func WithRetry(p RetryPolicy) TanshuClientOption {
	return func(c *TanshuClient) { c.retry = p }
}

// WithMetrics records upstream calls on m.
func WithMetrics(m *metrics.Registry) TanshuClientOption {
	return func(c *TanshuClient) { c.metrics = m }
}

// NewTanshuClient creates a client authenticated with key.
func NewTanshuClient(key string, opts ...TanshuClientOption) *TanshuClient {
	c := &TanshuClient{
		spotURL:    defaultSpotURL,
		historyURL: defaultHistoryURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		key:        key,
		retry:      RetryPolicy{Attempts: 1},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TanshuClient) Name() string { return "tanshu" }

// envelope is the common response wrapper. Code 1 is success.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return fmt.Errorf("missing number")
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", "")), 64)
		if err != nil {
			return fmt.Errorf("parse %q: %w", s, err)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// flexString accepts a JSON string or number and keeps its text.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(b)
	return nil
}

type spotRow struct {
	Type          string     `json:"type"`
	Price         flexFloat  `json:"price"`
	ChangeAmount  flexString `json:"changequantity"`
	ChangePercent flexString `json:"changepercent"`
	Open          flexString `json:"openingprice"`
	High          flexString `json:"maxprice"`
	Low           flexString `json:"minprice"`
	PrevClose     flexString `json:"lastclosingprice"`
	UpdateTime    flexString `json:"updatetime"`
}

type historyRow struct {
	Day   string    `json:"day"`
	High  flexFloat `json:"maxprice"`
	Low   flexFloat `json:"minprice"`
	Close flexFloat `json:"close"`
}

// FetchSpot retrieves the current precious-metals board.
func (c *TanshuClient) FetchSpot(ctx context.Context) (*model.SpotBoard, error) {
	q := url.Values{}
	q.Set("key", c.key)

	var rows []spotRow
	if err := c.call(ctx, "spot", c.spotURL, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("spot: empty list: %w", ErrMalformedResponse)
	}

	board := &model.SpotBoard{Items: make([]model.MetalQuote, 0, len(rows)), FetchedAt: time.Now()}
	for _, r := range rows {
		if r.Type == "" || r.Price <= 0 {
			return nil, fmt.Errorf("spot: row %q has price %v: %w", r.Type, float64(r.Price), ErrMalformedResponse)
		}
		name, ok := metalNames[r.Type]
		if !ok {
			name = r.Type
		}
		board.Items = append(board.Items, model.MetalQuote{
			Type:          r.Type,
			Name:          name,
			Price:         float64(r.Price),
			ChangeAmount:  string(r.ChangeAmount),
			ChangePercent: string(r.ChangePercent),
			Open:          string(r.Open),
			High:          string(r.High),
			Low:           string(r.Low),
			PrevClose:     string(r.PrevClose),
			UpdateTime:    string(r.UpdateTime),
		})
	}
	return board, nil
}

// FetchSeries retrieves up to limit bars of product, oldest first.
// Parameters are validated before any request is made.
func (c *TanshuClient) FetchSeries(ctx context.Context, product string, g model.Granularity, limit int) (*model.PriceSeries, error) {
	if _, ok := model.HistoryProducts[product]; !ok {
		known := slices.Sorted(maps.Keys(model.HistoryProducts))
		return nil, fmt.Errorf("product %s not available (available: %s): %w", product, strings.Join(known, ", "), ErrInvalidRequest)
	}
	if !g.Valid() {
		return nil, fmt.Errorf("granularity %d: %w", int(g), ErrInvalidRequest)
	}
	if limit <= 0 || limit > MaxHistoryLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d: %w", MaxHistoryLimit, limit, ErrInvalidRequest)
	}

	q := url.Values{}
	q.Set("key", c.key)
	q.Set("product", product)
	q.Set("type", strconv.Itoa(int(g)))
	q.Set("limit", strconv.Itoa(limit))

	var rows []historyRow
	if err := c.call(ctx, "history", c.historyURL, q, &rows); err != nil {
		return nil, err
	}

	series := &model.PriceSeries{
		Product:     product,
		Granularity: g,
		Bars:        make([]model.Bar, 0, len(rows)),
		FetchedAt:   time.Now(),
	}
	// Upstream lists newest first.
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		day, err := parseDay(r.Day)
		if err != nil {
			return nil, fmt.Errorf("history: row %d: %v: %w", i, err, ErrMalformedResponse)
		}
		series.Bars = append(series.Bars, model.Bar{
			Date:  day,
			High:  float64(r.High),
			Low:   float64(r.Low),
			Close: float64(r.Close),
		})
	}
	log.Debug().Str("product", product).Str("granularity", g.String()).Int("bars", len(series.Bars)).Msg("history fetched")
	return series, nil
}

func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.DateOnly, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable day %q", s)
}

// call performs one logical request and decodes data.list into out.
func (c *TanshuClient) call(ctx context.Context, op, endpoint string, q url.Values, out any) error {
	started := time.Now()
	err := c.retry.Do(ctx, op, func(ctx context.Context) error {
		return c.do(ctx, op, endpoint, q, out)
	})
	c.metrics.ObserveUpstream(c.Name()+"_"+op, started, err)
	return err
}

func (c *TanshuClient) do(ctx context.Context, op, endpoint string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return &TransportError{Op: op, StatusCode: res.StatusCode}
	}

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s: decoding response: %v: %w", op, err, ErrMalformedResponse)
	}
	if env.Code != 1 {
		return &APIError{Code: env.Code, Message: env.Msg}
	}

	var data struct {
		List json.RawMessage `json:"list"`
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("%s: missing data: %w", op, ErrMalformedResponse)
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return fmt.Errorf("%s: decoding data: %v: %w", op, err, ErrMalformedResponse)
	}
	if len(data.List) == 0 || string(data.List) == "null" {
		return fmt.Errorf("%s: missing list: %w", op, ErrMalformedResponse)
	}
	if err := json.Unmarshal(data.List, out); err != nil {
		return fmt.Errorf("%s: decoding list: %v: %w", op, err, ErrMalformedResponse)
	}
	return nil
}
