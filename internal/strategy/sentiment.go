package strategy

import (
	"math"
	"slices"

	"GoldSentinel/internal/model"
)

// maxConfidence caps every reported confidence.
const maxConfidence = 95.0

// FuseTechnical combines indicator signals into one sentiment using the
// weight table. Indicators without a weight are ignored, and missing
// indicators are not compensated for. The result does not depend on the
// order of results.
func FuseTechnical(results []model.IndicatorResult, weights map[string]float64) model.SentimentScore {
	byName := make(map[string]model.Signal, len(results))
	for _, r := range results {
		byName[r.Name] = r.Signal
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		if _, ok := weights[name]; ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	var sum, total float64
	for _, name := range names {
		w := weights[name]
		sum += float64(byName[name].Score()) * w
		total += w
	}
	if total == 0 {
		return model.SentimentScore{Category: model.Neutral, Icon: trendIcons[model.Neutral]}
	}

	avg := sum / total
	var cat model.Signal
	switch {
	case avg >= 1.3:
		cat = model.StrongBuy
	case avg >= 0.4:
		cat = model.Buy
	case avg >= -0.4:
		cat = model.Neutral
	case avg >= -1.3:
		cat = model.Sell
	default:
		cat = model.StrongSell
	}
	return model.SentimentScore{
		Category:        cat,
		Icon:            trendIcons[cat],
		WeightedAverage: avg,
		Confidence:      math.Min(math.Abs(avg)/2*100, maxConfidence),
		TotalWeight:     total,
	}
}
