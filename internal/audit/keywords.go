package audit

import (
	"strings"

	"github.com/xela07ax/brief-governance/internal/domain"
)

// Ключевые слова, которые ожидаются в описании KPI для каждой цели.
// Это эвристика, а не классификатор.
var objectiveKeywords = map[domain.BusinessObjective][]string{
	domain.ObjectiveRevenueAcquisition: {
		"lead", "conversion", "new member", "acquisition", "sign-up", "signup",
		"sale", "revenue", "membership", "trial",
	},
	domain.ObjectiveRetentionEngagement: {
		"retention", "engagement", "visit", "attendance", "churn", "renewal",
		"loyalty", "active member", "frequency",
	},
	domain.ObjectiveOperationalEfficiency: {
		"time", "cost", "process", "efficiency", "productivity", "automation",
		"hours", "workload",
	},
}

// MatchesObjective true, если в описании KPI есть хотя бы одно слово цели.
// Для неизвестной цели проверять нечего.
func MatchesObjective(obj domain.BusinessObjective, kpiDescription string) bool {
	words, ok := objectiveKeywords[obj]
	if !ok {
		return true
	}
	text := strings.ToLower(kpiDescription)
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
