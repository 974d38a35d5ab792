package strategy

import (
	"fmt"
	"math"

	"GoldSentinel/internal/model"
)

// Decide blends the technical sentiment and the macro impact into one
// verdict. The technical average is halved to bring it into the macro
// score's range; share is the technical side's weight in [0, 1]. When only
// one side has any weight, it decides alone.
func Decide(tech model.SentimentScore, macro *model.MacroImpact, share, threshold float64) model.Verdict {
	hasTech := tech.TotalWeight > 0
	hasMacro := macro != nil && macro.TotalWeight > 0
	techScore := tech.WeightedAverage / 2

	var v model.Verdict
	switch {
	case hasTech && hasMacro:
		v.Score = share*techScore + (1-share)*macro.Score
		v.Basis = fmt.Sprintf("technical %+.2f x %.2f, macro %+.2f x %.2f", techScore, share, macro.Score, 1-share)
	case hasTech:
		v.Score = techScore
		v.Basis = fmt.Sprintf("technical %+.2f only", techScore)
	case hasMacro:
		v.Score = macro.Score
		v.Basis = fmt.Sprintf("macro %+.2f only", macro.Score)
	default:
		v.Basis = "no data"
	}
	v.Action = recommend(v.Score, threshold)
	v.Confidence = math.Min(math.Abs(v.Score)*100, maxConfidence)
	return v
}
