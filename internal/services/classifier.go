package services

import (
	"strings"

	"crop-advisor-api/internal/models"
)

// QueryClassifier routes a free-text question to the specialist roles that
// should answer it. Routing is keyword membership over two fixed, disjoint
// vocabularies; it is a total function over all inputs and never returns an
// empty role list.
type QueryClassifier struct {
	agriculturalTerms []string
	weatherTerms      []string
}

func NewQueryClassifier() *QueryClassifier {
	return &QueryClassifier{
		agriculturalTerms: []string{
			"plant", "crop", "maize", "fertilizer", "pest",
			"harvest", "soil", "seed", "cultivation", "yield",
		},
		weatherTerms: []string{
			"weather", "rain", "forecast", "dry",
			"drought", "storm", "season", "rainfall",
		},
	}
}

// Classify returns the ordered roles for a query. The agronomist always
// comes first when both vocabularies match, and is the fallback when
// neither does.
func (classifier *QueryClassifier) Classify(query string) []models.Role {
	lowered := strings.ToLower(query)

	var roles []models.Role

	if containsAny(lowered, classifier.agriculturalTerms) {
		roles = append(roles, models.RoleAgronomist)
	}

	if containsAny(lowered, classifier.weatherTerms) {
		roles = append(roles, models.RoleWeatherAdvisor)
	}

	if len(roles) == 0 {
		roles = append(roles, models.RoleAgronomist)
	}

	return roles
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
