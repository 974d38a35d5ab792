package strategy

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"GoldSentinel/internal/calculator"
	"GoldSentinel/internal/model"
)

// Pair is a fast/slow moving-average crossover.
type Pair struct {
	Fast int
	Slow int
}

// Name returns the display name, e.g. "MA20-MA40".
func (p Pair) Name() string { return fmt.Sprintf("MA%d-MA%d", p.Fast, p.Slow) }

// IndicatorSet selects which indicators Analyze computes.
type IndicatorSet struct {
	MAPeriods  []int
	Crossovers []Pair
	CCIPeriod  int
}

// DefaultIndicatorSet is CCI-20, MA 5/20/40/60 and five crossovers.
func DefaultIndicatorSet() IndicatorSet {
	return IndicatorSet{
		MAPeriods:  []int{5, 20, 40, 60},
		Crossovers: []Pair{{5, 10}, {10, 20}, {20, 40}, {20, 60}, {40, 60}},
		CCIPeriod:  20,
	}
}

var trendIcons = map[model.Signal]string{
	model.StrongBuy:  "🚀",
	model.Buy:        "📈",
	model.Neutral:    "📊",
	model.Sell:       "📉",
	model.StrongSell: "🔥",
}

var cciIcons = map[model.Signal]string{
	model.StrongSell: "🔥",
	model.Sell:       "📉",
	model.Neutral:    "📊",
	model.Buy:        "💎",
	model.StrongBuy:  "🚨",
}

// TrendIcon returns the icon used for trend-style signals.
func TrendIcon(s model.Signal) string { return trendIcons[s] }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// CategorizeCCI maps a CCI reading to a signal. High readings are treated as
// overbought and therefore bearish.
func CategorizeCCI(v float64) model.Signal {
	switch {
	case v > 200:
		return model.StrongSell
	case v > 100:
		return model.Sell
	case v > -100:
		return model.Neutral
	case v > -200:
		return model.Buy
	default:
		return model.StrongBuy
	}
}

// CategorizeTrend maps the price's percentage distance from a moving
// average to a signal.
func CategorizeTrend(price, ma float64) model.Signal {
	d := (price - ma) / ma * 100
	switch {
	case d > 5:
		return model.StrongBuy
	case d > 2:
		return model.Buy
	case d > -2:
		return model.Neutral
	case d > -5:
		return model.Sell
	default:
		return model.StrongSell
	}
}

// crossoverThresholds returns the strong and weak spread thresholds for a
// fast period.
func crossoverThresholds(fast int) (strong, weak float64) {
	switch {
	case fast <= 10:
		return 1.5, 0.5
	case fast <= 20:
		return 2.0, 0.8
	default:
		return 1.0, 0.3
	}
}

// CategorizeCrossover maps the fast/slow spread to a signal.
func CategorizeCrossover(fastMA, slowMA float64, fast int) model.Signal {
	spread := (fastMA - slowMA) / slowMA * 100
	strong, weak := crossoverThresholds(fast)
	switch {
	case spread > strong:
		return model.StrongBuy
	case spread > weak:
		return model.Buy
	case spread > -weak:
		return model.Neutral
	case spread > -strong:
		return model.Sell
	default:
		return model.StrongSell
	}
}

// Analyze evaluates the indicator set against series. The reference price is
// the last close. Indicators whose window exceeds the series are left out.
// Results are ordered momentum, moving averages, crossovers.
func Analyze(series *model.PriceSeries, set IndicatorSet) []model.IndicatorResult {
	last, ok := series.Last()
	if !ok {
		return nil
	}
	price := last.Close
	closes := series.Closes()

	var out []model.IndicatorResult

	if set.CCIPeriod > 0 {
		cci, err := calculator.CCILatest(series.Highs(), series.Lows(), closes, set.CCIPeriod)
		if err == nil {
			sig := CategorizeCCI(cci)
			out = append(out, model.IndicatorResult{
				Name:   fmt.Sprintf("CCI-%d", set.CCIPeriod),
				Kind:   model.KindMomentum,
				Signal: sig,
				Icon:   cciIcons[sig],
				Value:  round2(cci),
			})
		} else {
			log.Debug().Err(err).Int("period", set.CCIPeriod).Int("bars", len(closes)).Msg("CCI skipped")
		}
	}

	for _, p := range set.MAPeriods {
		ma, err := calculator.SMALatest(closes, p)
		if err != nil || ma == 0 {
			continue
		}
		sig := CategorizeTrend(price, ma)
		diff := round2(price - ma)
		out = append(out, model.IndicatorResult{
			Name:      fmt.Sprintf("MA%d", p),
			Kind:      model.KindMovingAverage,
			Signal:    sig,
			Icon:      trendIcons[sig],
			Value:     round2(ma),
			PriceDiff: &diff,
		})
	}

	for _, pair := range set.Crossovers {
		fast, errF := calculator.SMALatest(closes, pair.Fast)
		slow, errS := calculator.SMALatest(closes, pair.Slow)
		if errF != nil || errS != nil || slow == 0 {
			continue
		}
		sig := CategorizeCrossover(fast, slow, pair.Fast)
		pct := round2((fast - slow) / slow * 100)
		out = append(out, model.IndicatorResult{
			Name:      pair.Name(),
			Kind:      model.KindCrossover,
			Signal:    sig,
			Icon:      trendIcons[sig],
			Value:     round2(fast - slow),
			SpreadPct: &pct,
		})
	}
	return out
}

// Rows formats indicator results for display.
func Rows(results []model.IndicatorResult) []model.IndicatorRow {
	rows := make([]model.IndicatorRow, 0, len(results))
	for _, r := range results {
		row := model.IndicatorRow{
			Indicator: r.Name,
			Category:  r.Signal.String(),
			Icon:      r.Icon,
			Type:      string(r.Kind),
		}
		switch r.Kind {
		case model.KindMomentum:
			row.Value = fmt.Sprintf("%+.2f", r.Value)
		case model.KindMovingAverage:
			row.Value = fmt.Sprintf("$%.2f", r.Value)
			if r.PriceDiff != nil {
				row.Extra = fmt.Sprintf("$%+.2f", *r.PriceDiff)
			}
		case model.KindCrossover:
			row.Value = fmt.Sprintf("$%+.2f", r.Value)
			if r.SpreadPct != nil {
				row.Extra = fmt.Sprintf("%+.2f%%", *r.SpreadPct)
			}
		}
		rows = append(rows, row)
	}
	return rows
}
