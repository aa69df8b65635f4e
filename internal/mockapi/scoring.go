package mockapi

import (
	"math"

	"github.com/genfinafrica/genfin-chat/internal/api"
)

// scoreSeason mocks the proficiency scoring engine. The score starts from a
// base of 50 and moves with land size, stage completion and age; each input
// also becomes an explainability factor so the bands stay auditable.
func scoreSeason(landSize float64, age, stageCount, completedStages int) (float64, string, []api.XAIFactor) {
	completionRatio := 0.0
	if stageCount > 0 {
		completionRatio = float64(completedStages) / float64(stageCount)
	}
	ageWeight := -5.0
	if age < 40 {
		ageWeight = 5.0
	}

	factors := []api.XAIFactor{
		{Factor: "KYC Completion (Base)", Weight: 50},
		{Factor: "Land Size (Hectares)", Weight: landSize * 2},
		{Factor: "Stages Completed Ratio", Weight: completionRatio * 30},
		{Factor: "Soil Quality Score (Mock)", Weight: 10},
		{Factor: "Age (Younger +)", Weight: ageWeight},
	}

	boost := 0.0
	for _, f := range factors {
		boost += f.Weight
	}
	score := math.Min(100, math.Max(0, 50+boost/10))
	score = math.Round(score*10) / 10

	riskBand := "HIGH"
	switch {
	case score >= 75:
		riskBand = "LOW"
	case score >= 50:
		riskBand = "MEDIUM"
	}

	// Displayed weights are rescaled to score contributions.
	display := make([]api.XAIFactor, 0, len(factors)+1)
	display = append(display, api.XAIFactor{Factor: "Base Score", Weight: 50})
	for _, f := range factors {
		display = append(display, api.XAIFactor{Factor: f.Factor, Weight: f.Weight / 10})
	}

	return score, riskBand, display
}
