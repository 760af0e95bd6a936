package models

import "math"

// RiskCategory bands a risk score.
type RiskCategory string

const (
	RiskLow    RiskCategory = "Low"
	RiskMedium RiskCategory = "Medium"
	RiskHigh   RiskCategory = "High"
)

// Thresholds shared by result categorization and dashboard status.
const (
	HighRiskThreshold   = 50.0
	MediumRiskThreshold = 25.0
)

// CategoryFor bands a score on the 0..100 scale.
func CategoryFor(score float64) RiskCategory {
	switch {
	case score >= HighRiskThreshold:
		return RiskHigh
	case score >= MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Valid reports whether c is one of the three known categories.
func (c RiskCategory) Valid() bool {
	return c == RiskLow || c == RiskMedium || c == RiskHigh
}

// RoundScore keeps two decimals.
func RoundScore(score float64) float64 {
	return math.Round(score*100) / 100
}
