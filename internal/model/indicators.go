package model

// IndicatorKind tags the shape of an IndicatorResult.
type IndicatorKind string

const (
	KindMomentum      IndicatorKind = "momentum"
	KindMovingAverage IndicatorKind = "ma"
	KindCrossover     IndicatorKind = "crossover"
)

// IndicatorResult is the evaluated state of one indicator.
//
// Value holds the oscillator reading for momentum indicators, the average
// itself for moving averages and the fast-slow spread for crossovers.
// PriceDiff is set only for moving averages, SpreadPct only for crossovers.
type IndicatorResult struct {
	Name      string
	Kind      IndicatorKind
	Signal    Signal
	Icon      string
	Value     float64
	PriceDiff *float64
	SpreadPct *float64
}
