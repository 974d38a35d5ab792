package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"GoldSentinel/internal/metrics"
	"GoldSentinel/internal/model"
)

const defaultCNBCBaseURL = "https://www.cnbc.com/quotes/"

var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
}

// CNBCScraper reads macro instrument quotes from public quote pages.
type CNBCScraper struct {
	baseURL     string
	httpClient  HTTPClient
	instruments map[string]model.Instrument
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	retry       RetryPolicy
	concurrency int
	metrics     *metrics.Registry
}

// CNBCOption configures a CNBCScraper.
type CNBCOption func(*CNBCScraper)

// WithCNBCBaseURL overrides the quote page prefix.
func WithCNBCBaseURL(u string) CNBCOption {
	return func(s *CNBCScraper) { s.baseURL = u }
}

// WithCNBCHTTPClient sets the HTTP client.
func WithCNBCHTTPClient(h HTTPClient) CNBCOption {
	return func(s *CNBCScraper) { s.httpClient = h }
}

// WithRateLimit caps page requests per second.
func WithRateLimit(perSecond float64) CNBCOption {
	return func(s *CNBCScraper) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// WithCNBCRetry sets the retry policy.
func WithCNBCRetry(p RetryPolicy) CNBCOption {
	return func(s *CNBCScraper) { s.retry = p }
}

// WithConcurrency bounds in-flight page fetches in FetchAll.
func WithConcurrency(n int) CNBCOption {
	return func(s *CNBCScraper) { s.concurrency = n }
}

// WithCNBCMetrics records page fetches on m.
func WithCNBCMetrics(m *metrics.Registry) CNBCOption {
	return func(s *CNBCScraper) { s.metrics = m }
}

// NewCNBCScraper creates a scraper for the given instruments.
func NewCNBCScraper(instruments []model.Instrument, opts ...CNBCOption) *CNBCScraper {
	s := &CNBCScraper{
		baseURL:     defaultCNBCBaseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		instruments: make(map[string]model.Instrument, len(instruments)),
		limiter:     rate.NewLimiter(rate.Limit(1), 1),
		retry:       DefaultRetry,
		concurrency: 2,
	}
	for _, in := range instruments {
		s.instruments[in.Key] = in
	}
	for _, opt := range opts {
		opt(s)
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "cnbc",
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return s
}

func (s *CNBCScraper) Name() string { return "cnbc" }

// FetchQuote fetches one instrument by its page key (".DXY", "US10Y", ...).
func (s *CNBCScraper) FetchQuote(ctx context.Context, key string) (*model.Quote, error) {
	in, ok := s.instruments[key]
	if !ok {
		return nil, fmt.Errorf("instrument %s: %w", key, ErrInvalidRequest)
	}

	started := time.Now()
	res, err := s.breaker.Execute(func() (interface{}, error) {
		var q model.Quote
		err := s.retry.Do(ctx, "cnbc "+key, func(ctx context.Context) error {
			doc, err := s.fetchPage(ctx, key)
			if err != nil {
				return err
			}
			q = extractQuote(doc, in)
			return nil
		})
		return q, err
	})
	s.metrics.ObserveUpstream(s.Name(), started, err)
	if err != nil {
		return nil, fmt.Errorf("cnbc %s: %w", key, err)
	}

	q := res.(model.Quote)
	if q.Price == 0 && q.ChangePercent == nil {
		return nil, fmt.Errorf("cnbc %s: no quote data on page: %w", key, ErrMalformedResponse)
	}
	q.Timestamp = time.Now()
	return &q, nil
}

// FetchAll fetches every configured instrument concurrently. Failed
// instruments are logged and left out; an error is returned only when
// nothing could be fetched. Results follow the configured order.
func (s *CNBCScraper) FetchAll(ctx context.Context, instruments []model.Instrument) ([]model.Quote, error) {
	slots := make([]*model.Quote, len(instruments))
	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, in := range instruments {
		g.Go(func() error {
			q, err := s.FetchQuote(gctx, in.Key)
			if err != nil {
				log.Warn().Err(err).Str("instrument", in.Name).Msg("macro fetch failed")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil // non-fatal
			}
			slots[i] = q
			return nil
		})
	}
	_ = g.Wait()

	quotes := make([]model.Quote, 0, len(instruments))
	for _, q := range slots {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}
	if len(quotes) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("all macro instruments failed: %w", errors.Join(errs...))
	}
	return quotes, nil
}

func (s *CNBCScraper) fetchPage(ctx context.Context, key string) (*goquery.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+key, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "cnbc " + key, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "cnbc " + key, StatusCode: res.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, &TransportError{Op: "cnbc " + key, Err: fmt.Errorf("parse html: %w", err)}
	}
	return doc, nil
}
