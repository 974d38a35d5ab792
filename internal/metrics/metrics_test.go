package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveUpstream("tanshu", time.Now(), nil)
		r.ObserveCache("spot", "live")
		r.SetQuota(1, 2, 3)
		r.SetScore("verdict", 0.5)
		r.SetMarketOpen(true)
	})
}

func TestRegistry_Records(t *testing.T) {
	r := New()

	r.ObserveUpstream("tanshu", time.Now(), nil)
	r.ObserveUpstream("tanshu", time.Now(), errors.New("boom"))
	r.ObserveCache("spot", "cached")
	r.SetQuota(4, 40, 560)
	r.SetMarketOpen(true)

	assert.InDelta(t, 1, testutil.ToFloat64(r.UpstreamCalls.WithLabelValues("tanshu", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.UpstreamCalls.WithLabelValues("tanshu", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.CacheResults.WithLabelValues("spot", "cached")), 0)
	assert.InDelta(t, 40, testutil.ToFloat64(r.QuotaCalls.WithLabelValues("month")), 0)
	assert.InDelta(t, 560, testutil.ToFloat64(r.QuotaRemaining), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.MarketOpen), 0)
}
