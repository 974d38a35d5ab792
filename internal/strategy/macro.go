package strategy

import (
	"fmt"
	"math"

	"GoldSentinel/internal/model"
)

// MacroOptions tunes macro fusion.
type MacroOptions struct {
	// SignificantMove is the absolute percent change above which a signal
	// line is emitted.
	SignificantMove float64
	// ActionThreshold splits BUY/HOLD/SELL on the fused score.
	ActionThreshold float64
}

// DefaultMacroOptions returns 0.5% moves and a 0.3 action threshold.
func DefaultMacroOptions() MacroOptions {
	return MacroOptions{SignificantMove: 0.5, ActionThreshold: 0.3}
}

// recommend maps a score in roughly [-1, 1] to an action.
func recommend(score, threshold float64) model.Recommendation {
	switch {
	case score > threshold:
		return model.RecommendBuy
	case score < -threshold:
		return model.RecommendSell
	default:
		return model.RecommendHold
	}
}

// FuseMacro combines instrument moves into a gold impact score. Quotes are
// matched to instruments by symbol; quotes without a change percentage are
// skipped. Factor order follows instruments.
func FuseMacro(quotes []model.Quote, instruments []model.Instrument, opts MacroOptions) *model.MacroImpact {
	bySymbol := make(map[string]model.Quote, len(quotes))
	for _, q := range quotes {
		bySymbol[q.Symbol] = q
	}

	impact := &model.MacroImpact{}
	var sum float64
	for _, in := range instruments {
		q, ok := bySymbol[in.Symbol]
		if !ok || q.ChangePercent == nil {
			continue
		}
		c := *q.ChangePercent

		f := model.MacroFactor{
			Symbol:        in.Symbol,
			Name:          in.Name,
			ChangePercent: c,
			Weight:        in.Weight,
			Impact:        in.Impact,
		}
		if in.Impact == model.ImpactInverse {
			f.Contribution = -c * in.Weight
			f.Direction = "bullish"
			if c > 0 {
				f.Direction = "bearish"
			}
		} else {
			f.Contribution = c * in.Weight
			f.Direction = "bearish"
			if c > 0 {
				f.Direction = "bullish"
			}
		}

		sum += f.Contribution
		impact.TotalWeight += in.Weight
		impact.Factors = append(impact.Factors, f)

		if math.Abs(c) > opts.SignificantMove {
			impact.Signals = append(impact.Signals, fmt.Sprintf("%s: %+.2f%% - %s for gold", in.Name, c, f.Direction))
		}
	}

	if impact.TotalWeight > 0 {
		impact.Score = sum / impact.TotalWeight
	}
	impact.Recommendation = recommend(impact.Score, opts.ActionThreshold)
	impact.Confidence = math.Min(math.Abs(impact.Score)*100, maxConfidence)
	return impact
}
