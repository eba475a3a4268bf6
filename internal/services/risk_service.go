package services

import (
	"strings"

	"crop-advisor-api/internal/models"
)

// RiskAnalyzer scores weather observations against independent threshold
// rules. It is a pure function over its inputs: no state, no clock, no I/O.
type RiskAnalyzer struct {
	regionalNotes map[string]string
}

func NewRiskAnalyzer() *RiskAnalyzer {
	return &RiskAnalyzer{
		regionalNotes: map[string]string{
			"Central Kenya": "Central Kenya's highland climate favors maize; watch for cold-night stress above 1800m.",
			"Western Kenya": "Western Kenya's bimodal rains allow two plantings; fungal pressure is high in the long rains.",
			"Eastern Kenya": "Eastern Kenya is drought-prone; prioritize early-maturing varieties and water harvesting.",
			"Rift Valley":   "Rift Valley soils are fertile but erosion-prone on slopes; maintain contour bunds.",
		},
	}
}

const (
	severityHigh     = 8
	severityModerate = 5
	severityLow      = 4
)

// Assess derives a risk assessment from one observation. Rules trigger
// independently; severities sum and recommendation lists concatenate.
func (analyzer *RiskAnalyzer) Assess(observation *models.WeatherObservation) models.RiskAssessment {
	condition := strings.ToLower(observation.Condition)

	score := 0
	var factors []string
	var recommendations []string

	switch {
	case observation.Temperature > 35:
		score += severityHigh
		factors = append(factors, "extreme_heat")
		recommendations = append(recommendations,
			"Increase irrigation frequency to compensate for extreme heat",
			"Provide temporary shade netting for young maize plants",
			"Irrigate early morning or late evening to limit losses")
	case observation.Temperature > 30:
		score += severityLow
		factors = append(factors, "high_temperature")
		recommendations = append(recommendations,
			"Monitor soil moisture closely and irrigate as needed")
	}

	if containsAny(condition, []string{"storm", "heavy rain", "torrential"}) {
		score += severityHigh
		factors = append(factors, "storm_damage")
		recommendations = append(recommendations,
			"Clear drainage channels before the rain arrives",
			"Delay fertilizer application to avoid runoff losses",
			"Reinforce soil with mulch to reduce erosion")
	}

	if containsAny(condition, []string{"drought", "dry"}) {
		score += severityModerate
		factors = append(factors, "drought_stress")
		recommendations = append(recommendations,
			"Apply mulch to conserve soil moisture",
			"Schedule supplemental irrigation if water is available")
	}

	if observation.Humidity > 80 && !strings.Contains(condition, "rain") {
		score += severityModerate
		factors = append(factors, "fungal_disease_risk")
		recommendations = append(recommendations,
			"Scout for fungal diseases such as gray leaf spot",
			"Improve airflow by avoiding over-dense planting")
	}

	if observation.Humidity < 30 {
		score += severityLow
		factors = append(factors, "evaporation_stress")
		recommendations = append(recommendations,
			"Irrigate in the evening to reduce evaporation losses",
			"Apply mulch to slow soil moisture loss")
	}

	level := models.RiskLevelLow
	if score >= 8 {
		level = models.RiskLevelHigh
	} else if score >= 5 {
		level = models.RiskLevelMedium
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations,
			"Conditions are favorable; continue routine crop management")
	}

	return models.RiskAssessment{
		RiskScore:           score,
		RiskLevel:           level,
		ContributingFactors: factors,
		Recommendations:     recommendations,
		RegionalNote:        analyzer.regionalNote(observation.Location),
	}
}

func (analyzer *RiskAnalyzer) regionalNote(location string) string {
	if note, ok := analyzer.regionalNotes[location]; ok {
		return note
	}
	return "No region-specific advisory available; apply general good agricultural practice."
}
