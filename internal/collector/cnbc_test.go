package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoldSentinel/internal/model"
)

func quotePage(price, change string) string {
	return `<html><body><div class="QuoteStrip-container">
		<span class="QuoteStrip-lastPrice">` + price + `</span>
		<span>` + change + `</span></div></body></html>`
}

func newTestScraper(srv *httptest.Server, instruments []model.Instrument) *CNBCScraper {
	return NewCNBCScraper(instruments,
		WithCNBCBaseURL(srv.URL+"/quotes/"),
		WithCNBCHTTPClient(srv.Client()),
		WithRateLimit(0),
		WithCNBCRetry(RetryPolicy{Attempts: 2}),
	)
}

func TestCNBCScraper_FetchAllKeepsOrderAndDropsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/quotes/") {
		case ".DXY":
			_, _ = w.Write([]byte(quotePage("104.25", "-0.31 (-0.30%)")))
		case "VIX":
			_, _ = w.Write([]byte(quotePage("18.22", "+1.05 (+6.12%)")))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	vix := model.Instrument{Key: "VIX", Symbol: "VIX", Name: "Volatility Index", Impact: model.ImpactPositive, Weight: 0.18}
	gld := model.Instrument{Key: "GLD", Symbol: "GLD", Name: "Gold ETF", Impact: model.ImpactPositive, Weight: 0.15}
	instruments := []model.Instrument{dxy, gld, vix}

	quotes, err := newTestScraper(srv, instruments).FetchAll(context.Background(), instruments)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "DXY", quotes[0].Symbol)
	assert.Equal(t, "VIX", quotes[1].Symbol)
	assert.Equal(t, "CNBC", quotes[1].Source)
	require.NotNil(t, quotes[1].ChangePercent)
	assert.InDelta(t, 6.12, *quotes[1].ChangePercent, 1e-9)
}

func TestCNBCScraper_AllFailed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newTestScraper(srv, []model.Instrument{dxy}).FetchAll(context.Background(), []model.Instrument{dxy})
	require.Error(t, err)
	var te *TransportError
	assert.ErrorAs(t, err, &te)
}

func TestCNBCScraper_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(quotePage("104.25", "-0.31 (-0.30%)")))
	}))
	defer srv.Close()

	q, err := newTestScraper(srv, []model.Instrument{dxy}).FetchQuote(context.Background(), ".DXY")
	require.NoError(t, err)
	assert.InDelta(t, 104.25, q.Price, 1e-9)
	assert.EqualValues(t, 2, calls.Load())
}

func TestCNBCScraper_UnknownInstrument(t *testing.T) {
	s := NewCNBCScraper(nil)
	_, err := s.FetchQuote(context.Background(), "SPX")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCNBCScraper_EmptyPageIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>maintenance</body></html>`))
	}))
	defer srv.Close()

	_, err := newTestScraper(srv, []model.Instrument{dxy}).FetchQuote(context.Background(), ".DXY")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
