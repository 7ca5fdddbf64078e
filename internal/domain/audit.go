package domain

import "time"

type CheckStatus string

const (
	CheckPass    CheckStatus = "PASS"
	CheckWarning CheckStatus = "WARNING"
	CheckFail    CheckStatus = "FAIL"
)

func (s CheckStatus) severity() int {
	switch s {
	case CheckFail:
		return 2
	case CheckWarning:
		return 1
	}
	return 0
}

// Worst возвращает самый тяжелый статус: FAIL > WARNING > PASS.
func Worst(statuses ...CheckStatus) CheckStatus {
	worst := CheckPass
	for _, s := range statuses {
		if s.severity() > worst.severity() {
			worst = s
		}
	}
	return worst
}

type CompletenessCheck struct {
	Status        CheckStatus `json:"status"`
	MissingFields []string    `json:"missing_fields"`
	Message       string      `json:"message"`
}

type ConsistencyIssue struct {
	Severity CheckStatus `json:"severity"`
	Message  string      `json:"message"`
}

type ConsistencyCheck struct {
	Status  CheckStatus        `json:"status"`
	Issues  []ConsistencyIssue `json:"issues"`
	Message string             `json:"message"`
}

type FeasibilityCheck struct {
	Status                  CheckStatus `json:"status"`
	DaysUntilDeadline       int         `json:"days_until_deadline"`
	RequiredSLADays         int         `json:"required_sla_days"`
	EstimatedCompletionDate *time.Time  `json:"estimated_completion_date,omitempty"`
	CapacityAvailable       bool        `json:"capacity_available"` // только для отображения
	Message                 string      `json:"message"`
}

type PolicyComplianceCheck struct {
	Status             CheckStatus `json:"status"`
	Violations         []string    `json:"violations"`
	RequiresEscalation bool        `json:"requires_escalation"`
	Message            string      `json:"message"`
}

// AuditResult значение, не хранится отдельной строкой. Пересчитывается по запросу.
type AuditResult struct {
	Completeness     CompletenessCheck     `json:"completeness"`
	Consistency      ConsistencyCheck      `json:"consistency"`
	Feasibility      FeasibilityCheck      `json:"feasibility"`
	PolicyCompliance PolicyComplianceCheck `json:"policy_compliance"`
	OverallStatus    CheckStatus           `json:"overall_status"`
	AuditedAt        time.Time             `json:"audited_at"`
}
