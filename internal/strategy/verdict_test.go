package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"GoldSentinel/internal/model"
)

func TestDecide(t *testing.T) {
	tech := model.SentimentScore{WeightedAverage: 1.2, TotalWeight: 100}
	macro := &model.MacroImpact{Score: -0.2, TotalWeight: 0.5}

	tests := []struct {
		name   string
		tech   model.SentimentScore
		macro  *model.MacroImpact
		score  float64
		action model.Recommendation
	}{
		// 0.5*0.6 + 0.5*(-0.2)
		{"both", tech, macro, 0.2, model.RecommendHold},
		{"technical only", tech, nil, 0.6, model.RecommendBuy},
		{"macro without weight", tech, &model.MacroImpact{}, 0.6, model.RecommendBuy},
		{"macro only", model.SentimentScore{}, &model.MacroImpact{Score: -0.45, TotalWeight: 0.2}, -0.45, model.RecommendSell},
		{"nothing", model.SentimentScore{}, nil, 0, model.RecommendHold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Decide(tt.tech, tt.macro, 0.5, 0.3)
			assert.InDelta(t, tt.score, v.Score, 1e-9)
			assert.Equal(t, tt.action, v.Action)
			assert.NotEmpty(t, v.Basis)
		})
	}
}

func TestDecide_ConfidenceCapped(t *testing.T) {
	v := Decide(model.SentimentScore{WeightedAverage: 2, TotalWeight: 1}, nil, 0.5, 0.3)
	assert.InDelta(t, 95, v.Confidence, 0)
	assert.Equal(t, model.RecommendBuy, v.Action)
}
