package audit

/*
Файл auditor.go реализует AI Auditor: детерминированный слой проверки брифа по четырем осям
(полнота, согласованность, реализуемость, соответствие политике).

Аудитор ничего не пишет, не генерирует контент и не принимает решение accept/reject.
Единственное входное "время" это now, переданный снаружи.
*/

import (
	"fmt"
	"strings"
	"time"

	"github.com/xela07ax/brief-governance/internal/domain"
)

// Thresholds пороги аудита, приходят из конфигурации.
type Thresholds struct {
	CostThreshold  float64 // выше этой стоимости нужна эскалация
	KPIUpperBound  float64 // выше этого KPI выглядит нереалистично
	DefaultSLADays int     // SLA, если шаблон не найден
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		CostThreshold:  10000,
		KPIUpperBound:  1_000_000,
		DefaultSLADays: 5,
	}
}

type Auditor struct {
	th Thresholds
}

func NewAuditor(th Thresholds) *Auditor {
	def := DefaultThresholds()
	if th.CostThreshold <= 0 {
		th.CostThreshold = def.CostThreshold
	}
	if th.KPIUpperBound <= 0 {
		th.KPIUpperBound = def.KPIUpperBound
	}
	if th.DefaultSLADays <= 0 {
		th.DefaultSLADays = def.DefaultSLADays
	}
	return &Auditor{th: th}
}

// PerformAudit собирает четыре проверки. Чистая функция: одинаковый вход дает одинаковый результат.
func (a *Auditor) PerformAudit(b *domain.Brief, tpl *domain.RequestTemplate, capacity *domain.ProductionCapacity, now time.Time) domain.AuditResult {
	res := domain.AuditResult{
		Completeness:     a.Completeness(b),
		Consistency:      a.Consistency(b),
		Feasibility:      a.Feasibility(b, tpl, capacity, now),
		PolicyCompliance: a.PolicyCompliance(b, tpl),
		AuditedAt:        now,
	}
	res.OverallStatus = domain.Worst(
		res.Completeness.Status,
		res.Consistency.Status,
		res.Feasibility.Status,
		res.PolicyCompliance.Status,
	)
	return res
}

// CanSubmit единственный аудиторский гейт отправки: только полнота.
func CanSubmit(res domain.AuditResult) bool {
	return res.Completeness.Status == domain.CheckPass
}

// Completeness проверяет обязательные поля Decision Layer и базовый контент.
func (a *Auditor) Completeness(b *domain.Brief) domain.CompletenessCheck {
	missing := make([]string, 0)
	if strings.TrimSpace(string(b.BusinessObjective)) == "" {
		missing = append(missing, "businessObjective")
	}
	if strings.TrimSpace(b.KPIDescription) == "" {
		missing = append(missing, "kpiDescription")
	}
	if b.KPITarget == nil {
		missing = append(missing, "kpiTarget")
	}
	if strings.TrimSpace(string(b.DecisionContext)) == "" {
		missing = append(missing, "decisionContext")
	}
	if strings.TrimSpace(b.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(b.Context) == "" {
		missing = append(missing, "context")
	}
	if b.Deadline == nil {
		missing = append(missing, "deadline")
	}

	if len(missing) > 0 {
		return domain.CompletenessCheck{
			Status:        domain.CheckFail,
			MissingFields: missing,
			Message:       "Missing required fields: " + strings.Join(missing, ", "),
		}
	}
	return domain.CompletenessCheck{
		Status:        domain.CheckPass,
		MissingFields: missing,
		Message:       "All decision-layer fields are filled",
	}
}

// Consistency сверяет KPI с целью (эвристика по ключевым словам), числа и даты.
// Несовпадение ключевых слов никогда не дает FAIL, только WARNING.
func (a *Auditor) Consistency(b *domain.Brief) domain.ConsistencyCheck {
	issues := make([]domain.ConsistencyIssue, 0)

	if b.BusinessObjective != "" && strings.TrimSpace(b.KPIDescription) != "" {
		if !MatchesObjective(b.BusinessObjective, b.KPIDescription) {
			issues = append(issues, domain.ConsistencyIssue{
				Severity: domain.CheckWarning,
				Message:  fmt.Sprintf("KPI may not match objective %s", b.BusinessObjective),
			})
		}
	}

	if b.KPITarget != nil {
		switch {
		case *b.KPITarget <= 0:
			issues = append(issues, domain.ConsistencyIssue{
				Severity: domain.CheckFail,
				Message:  "KPI target must be positive",
			})
		case *b.KPITarget > a.th.KPIUpperBound:
			issues = append(issues, domain.ConsistencyIssue{
				Severity: domain.CheckWarning,
				Message:  fmt.Sprintf("KPI target %.0f looks unrealistically high", *b.KPITarget),
			})
		}
	}

	if b.StartDate != nil && b.EndDate != nil && b.EndDate.Before(*b.StartDate) {
		issues = append(issues, domain.ConsistencyIssue{
			Severity: domain.CheckFail,
			Message:  "End date is earlier than start date",
		})
	}

	status := domain.CheckPass
	for _, is := range issues {
		status = domain.Worst(status, is.Severity)
	}

	msg := "KPI, objective and dates are consistent"
	if len(issues) > 0 {
		parts := make([]string, 0, len(issues))
		for _, is := range issues {
			parts = append(parts, is.Message)
		}
		msg = strings.Join(parts, "; ")
	}
	return domain.ConsistencyCheck{Status: status, Issues: issues, Message: msg}
}

// Feasibility оценивает, успевает ли продакшн к дедлайну при SLA шаблона.
// Доступность мощностей только прокидывается для отображения и статус не меняет.
func (a *Auditor) Feasibility(b *domain.Brief, tpl *domain.RequestTemplate, capacity *domain.ProductionCapacity, now time.Time) domain.FeasibilityCheck {
	required := a.RequiredSLADays(tpl)
	res := domain.FeasibilityCheck{
		RequiredSLADays:   required,
		CapacityAvailable: capacity != nil && capacity.IsActive,
	}

	if b.Deadline == nil {
		res.Status = domain.CheckFail
		res.Message = "Deadline is not set"
		return res
	}

	days := domain.DaysUntil(now, *b.Deadline)
	res.DaysUntilDeadline = days

	switch {
	case days < 1:
		res.Status = domain.CheckFail
		res.Message = "Deadline is in the past or today"
	case days < required:
		eta := now.AddDate(0, 0, required)
		res.Status = domain.CheckWarning
		res.EstimatedCompletionDate = &eta
		res.Message = fmt.Sprintf("Deadline in %d day(s) is shorter than the %d-day SLA", days, required)
	default:
		res.Status = domain.CheckPass
		res.Message = fmt.Sprintf("Deadline in %d day(s) fits the %d-day SLA", days, required)
	}
	return res
}

// RequiredSLADays SLA шаблона, без шаблона дефолт из конфигурации.
func (a *Auditor) RequiredSLADays(tpl *domain.RequestTemplate) int {
	if tpl != nil && tpl.DefaultSLADays > 0 {
		return tpl.DefaultSLADays
	}
	return a.th.DefaultSLADays
}

// PolicyCompliance собирает нарушения и отдельно флаг эскалации.
func (a *Auditor) PolicyCompliance(b *domain.Brief, tpl *domain.RequestTemplate) domain.PolicyComplianceCheck {
	violations := make([]string, 0)
	escalate := false

	if tpl != nil && tpl.IsBlacklisted {
		reason := tpl.BlacklistReason
		if reason == "" {
			reason = "no reason given"
		}
		violations = append(violations, fmt.Sprintf("Template %s is blacklisted: %s", tpl.Code, reason))
		escalate = true
	}
	if b.Cost() > a.th.CostThreshold {
		violations = append(violations, fmt.Sprintf("Estimated cost %.2f exceeds the %.0f threshold", b.Cost(), a.th.CostThreshold))
		escalate = true
	}
	if b.DecisionContext == domain.DecisionCentral && !b.RequiresOwnerApproval {
		violations = append(violations, "Central decision context requires owner approval")
	}
	if b.IsCrisisCommunication {
		escalate = true
	}

	res := domain.PolicyComplianceCheck{Violations: violations, RequiresEscalation: escalate}
	switch {
	case len(violations) > 0:
		res.Status = domain.CheckFail
		res.Message = strings.Join(violations, "; ")
	case escalate:
		res.Status = domain.CheckWarning
		res.Message = "Brief requires escalation"
	default:
		res.Status = domain.CheckPass
		res.Message = "No policy violations"
	}
	return res
}
