package model

// Signal is a discrete trading signal. Its integer value is the score used
// when signals are fused.
type Signal int

const (
	StrongSell Signal = -2
	Sell       Signal = -1
	Neutral    Signal = 0
	Buy        Signal = 1
	StrongBuy  Signal = 2
)

func (s Signal) String() string {
	switch s {
	case StrongBuy:
		return "Strong Buy"
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	case StrongSell:
		return "Strong Sell"
	default:
		return "Neutral"
	}
}

// Score returns the fusion score of the signal.
func (s Signal) Score() int { return int(s) }

// Recommendation is the final directional call.
type Recommendation string

const (
	RecommendBuy  Recommendation = "BUY"
	RecommendSell Recommendation = "SELL"
	RecommendHold Recommendation = "HOLD"
)

// SentimentScore is the fused technical sentiment.
type SentimentScore struct {
	Category        Signal
	Icon            string
	WeightedAverage float64
	Confidence      float64 // 0..100
	TotalWeight     float64
}

// Impact tells how an instrument's move relates to the tracked asset.
type Impact string

const (
	ImpactInverse  Impact = "inverse"
	ImpactPositive Impact = "positive"
)

// Instrument describes one macro instrument and how it moves the tracked asset.
type Instrument struct {
	Key       string  `yaml:"key" json:"key"`
	Symbol    string  `yaml:"symbol" json:"symbol"`
	Name      string  `yaml:"name" json:"name"`
	Impact    Impact  `yaml:"impact" json:"impact"`
	Weight    float64 `yaml:"weight" json:"weight"`
	YieldLike bool    `yaml:"yield_like" json:"yield_like"`
}

// MacroFactor is one instrument's contribution to the macro score.
type MacroFactor struct {
	Symbol        string
	Name          string
	ChangePercent float64
	Weight        float64
	Impact        Impact
	Contribution  float64
	Direction     string // "bullish" or "bearish"
}

// MacroImpact is the fused cross-asset score.
type MacroImpact struct {
	Score          float64
	TotalWeight    float64
	Factors        []MacroFactor
	Signals        []string
	Recommendation Recommendation
	Confidence     float64
}

// Verdict is the single recommendation combining technical and macro views.
type Verdict struct {
	Action     Recommendation
	Score      float64
	Confidence float64
	Basis      string
}
