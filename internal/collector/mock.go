package collector

import (
	"context"
	"fmt"
	"time"

	"GoldSentinel/internal/model"
)

// MockSource returns controllable fixed data for development and testing.
// It serves every source interface.
type MockSource struct {
	Price  float64
	Bars   []model.Bar // generated from Price when nil
	Quotes map[string]model.Quote
	Err    error
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) FetchSpot(_ context.Context) (*model.SpotBoard, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &model.SpotBoard{
		Items: []model.MetalQuote{{
			Type:          "伦敦金",
			Name:          "London Gold",
			Price:         m.Price,
			ChangeAmount:  "+1.20",
			ChangePercent: "+0.05%",
			UpdateTime:    time.Now().Format(time.DateTime),
		}},
		FetchedAt: time.Now(),
	}, nil
}

func (m *MockSource) FetchSeries(_ context.Context, product string, g model.Granularity, limit int) (*model.PriceSeries, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	bars := m.Bars
	if bars == nil {
		bars = generateMockBars(m.Price, limit)
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return &model.PriceSeries{Product: product, Granularity: g, Bars: bars, FetchedAt: time.Now()}, nil
}

func (m *MockSource) FetchQuote(_ context.Context, key string) (*model.Quote, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	q, ok := m.Quotes[key]
	if !ok {
		return nil, fmt.Errorf("mock quote %s: %w", key, ErrInvalidRequest)
	}
	return &q, nil
}

func (m *MockSource) FetchAll(ctx context.Context, instruments []model.Instrument) ([]model.Quote, error) {
	var out []model.Quote
	for _, in := range instruments {
		if q, err := m.FetchQuote(ctx, in.Key); err == nil {
			out = append(out, *q)
		}
	}
	return out, m.Err
}

func generateMockBars(basePrice float64, count int) []model.Bar {
	bars := make([]model.Bar, count)
	start := time.Now().Truncate(24*time.Hour).AddDate(0, 0, -count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Date:  start.AddDate(0, 0, i+1),
			High:  p * 1.005,
			Low:   p * 0.995,
			Close: p,
		}
	}
	return bars
}
