package collector

import (
	"context"

	"GoldSentinel/internal/model"
)

// SpotSource returns the current precious-metals board.
type SpotSource interface {
	FetchSpot(ctx context.Context) (*model.SpotBoard, error)
	Name() string
}

// SeriesSource returns historical bars for a product.
type SeriesSource interface {
	FetchSeries(ctx context.Context, product string, g model.Granularity, limit int) (*model.PriceSeries, error)
	Name() string
}

// QuoteSource returns a single instrument quote by key.
type QuoteSource interface {
	FetchQuote(ctx context.Context, key string) (*model.Quote, error)
	Name() string
}

// MacroSource returns quotes for a set of macro instruments. Instruments that
// cannot be fetched are left out of the result.
type MacroSource interface {
	FetchAll(ctx context.Context, instruments []model.Instrument) ([]model.Quote, error)
}
