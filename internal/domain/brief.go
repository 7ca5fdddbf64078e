package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type BusinessObjective string

const (
	ObjectiveRevenueAcquisition    BusinessObjective = "REVENUE_ACQUISITION"
	ObjectiveRetentionEngagement   BusinessObjective = "RETENTION_ENGAGEMENT"
	ObjectiveOperationalEfficiency BusinessObjective = "OPERATIONAL_EFFICIENCY"
)

func (o BusinessObjective) Valid() bool {
	switch o {
	case ObjectiveRevenueAcquisition, ObjectiveRetentionEngagement, ObjectiveOperationalEfficiency:
		return true
	}
	return false
}

type DecisionContext string

const (
	DecisionLocal    DecisionContext = "LOCAL"
	DecisionRegional DecisionContext = "REGIONAL"
	DecisionCentral  DecisionContext = "CENTRAL"
)

func (d DecisionContext) Valid() bool {
	switch d {
	case DecisionLocal, DecisionRegional, DecisionCentral:
		return true
	}
	return false
}

type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "LOW"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceHigh   ConfidenceLevel = "HIGH"
)

type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Brief центральная сущность: заявка менеджера клуба на маркетинговый материал.
type Brief struct {
	ID         string `json:"id"`
	Code       string `json:"code"` // BR-2026-0042
	ClubID     string `json:"club_id"`
	BrandID    string `json:"brand_id,omitempty"`
	TemplateID string `json:"template_id"`
	CreatorID  string `json:"creator_id"`

	// Контент
	Title         string         `json:"title"`
	Context       string         `json:"context"`
	OfferDetails  string         `json:"offer_details,omitempty"`
	LegalCopy     string         `json:"legal_copy,omitempty"`
	AssetLinks    []string       `json:"asset_links"`
	CustomFields  map[string]any `json:"custom_fields,omitempty"`
	Formats       []string       `json:"formats"`
	CustomFormats []string       `json:"custom_formats,omitempty"`

	// Decision Layer
	BusinessObjective BusinessObjective `json:"business_objective,omitempty"`
	KPIDescription    string            `json:"kpi_description,omitempty"`
	KPITarget         *float64          `json:"kpi_target,omitempty"`
	DecisionContext   DecisionContext   `json:"decision_context,omitempty"`

	// Governance
	EstimatedCost         *float64        `json:"estimated_cost,omitempty"`
	IsCrisisCommunication bool            `json:"is_crisis_communication"`
	ConfidenceLevel       ConfidenceLevel `json:"confidence_level,omitempty"`
	PolicyResult          *PolicyResult   `json:"policy_result,omitempty"`
	PolicyEvaluatedAt     *time.Time      `json:"policy_evaluated_at,omitempty"`
	RequiresOwnerApproval bool            `json:"requires_owner_approval"`
	OwnerApprovalReason   string          `json:"owner_approval_reason,omitempty"`
	Priority              Priority        `json:"priority"`

	// Решение валидатора
	ReviewerID    string     `json:"reviewer_id,omitempty"`
	ReviewComment string     `json:"review_comment,omitempty"`
	SLADays       int        `json:"sla_days,omitempty"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`

	// Жизненный цикл
	Status      BriefStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	SubmittedAt *time.Time  `json:"submitted_at,omitempty"`
	Deadline    *time.Time  `json:"deadline,omitempty"`
	StartDate   *time.Time  `json:"start_date,omitempty"`
	EndDate     *time.Time  `json:"end_date,omitempty"`
}

// PolicyStale сообщает, что контент правили после последнего прогона Policy Engine.
// Результат остается авторитетным до следующей отправки, но UI обязан это показать.
func (b *Brief) PolicyStale() bool {
	if b.PolicyEvaluatedAt == nil {
		return false
	}
	return b.UpdatedAt.After(*b.PolicyEvaluatedAt)
}

// Cost возвращает оценку стоимости, отсутствие трактуется как 0.
func (b *Brief) Cost() float64 {
	if b.EstimatedCost == nil {
		return 0
	}
	return *b.EstimatedCost
}

// DaysUntil считает дни до дедлайна с округлением вверх.
func DaysUntil(now, deadline time.Time) int {
	d := deadline.Sub(now).Hours() / 24
	return int(math.Ceil(d))
}

// FormatBriefCode строит человекочитаемый код, последовательный в пределах года.
func FormatBriefCode(year, seq int) string {
	return fmt.Sprintf("BR-%d-%04d", year, seq)
}

// ContentPatch описывает правку контента. nil означает "не трогать поле".
type ContentPatch struct {
	Title         *string        `json:"title,omitempty"`
	Context       *string        `json:"context,omitempty"`
	OfferDetails  *string        `json:"offer_details,omitempty"`
	LegalCopy     *string        `json:"legal_copy,omitempty"`
	AssetLinks    []string       `json:"asset_links,omitempty"`
	CustomFields  map[string]any `json:"custom_fields,omitempty"`
	Formats       []string       `json:"formats,omitempty"`
	CustomFormats []string       `json:"custom_formats,omitempty"`

	BusinessObjective *BusinessObjective `json:"business_objective,omitempty"`
	KPIDescription    *string            `json:"kpi_description,omitempty"`
	KPITarget         *float64           `json:"kpi_target,omitempty"`
	DecisionContext   *DecisionContext   `json:"decision_context,omitempty"`

	EstimatedCost         *float64         `json:"estimated_cost,omitempty"`
	IsCrisisCommunication *bool            `json:"is_crisis_communication,omitempty"`
	ConfidenceLevel       *ConfidenceLevel `json:"confidence_level,omitempty"`

	Deadline  *time.Time `json:"deadline,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Apply переносит заданные поля патча в бриф.
func (p ContentPatch) Apply(b *Brief) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Context != nil {
		b.Context = *p.Context
	}
	if p.OfferDetails != nil {
		b.OfferDetails = *p.OfferDetails
	}
	if p.LegalCopy != nil {
		b.LegalCopy = *p.LegalCopy
	}
	if p.AssetLinks != nil {
		b.AssetLinks = append([]string(nil), p.AssetLinks...)
	}
	if p.CustomFields != nil {
		b.CustomFields = p.CustomFields
	}
	if p.Formats != nil {
		b.Formats = append([]string(nil), p.Formats...)
	}
	if p.CustomFormats != nil {
		b.CustomFormats = append([]string(nil), p.CustomFormats...)
	}
	if p.BusinessObjective != nil {
		b.BusinessObjective = *p.BusinessObjective
	}
	if p.KPIDescription != nil {
		b.KPIDescription = *p.KPIDescription
	}
	if p.KPITarget != nil {
		v := *p.KPITarget
		b.KPITarget = &v
	}
	if p.DecisionContext != nil {
		b.DecisionContext = *p.DecisionContext
	}
	if p.EstimatedCost != nil {
		v := *p.EstimatedCost
		b.EstimatedCost = &v
	}
	if p.IsCrisisCommunication != nil {
		b.IsCrisisCommunication = *p.IsCrisisCommunication
	}
	if p.ConfidenceLevel != nil {
		b.ConfidenceLevel = *p.ConfidenceLevel
	}
	if p.Deadline != nil {
		v := *p.Deadline
		b.Deadline = &v
	}
	if p.StartDate != nil {
		v := *p.StartDate
		b.StartDate = &v
	}
	if p.EndDate != nil {
		v := *p.EndDate
		b.EndDate = &v
	}
}

// ValidateShape проверяет инварианты формы записи на границе (ValidationFailure).
// Полнота Decision Layer здесь не проверяется: это забота Completeness при отправке.
func ValidateShape(b *Brief) error {
	var fields []FieldError
	if strings.TrimSpace(b.ClubID) == "" {
		fields = append(fields, FieldError{Field: "club_id", Message: "is required"})
	}
	if strings.TrimSpace(b.TemplateID) == "" {
		fields = append(fields, FieldError{Field: "template_id", Message: "is required"})
	}
	if strings.TrimSpace(b.CreatorID) == "" {
		fields = append(fields, FieldError{Field: "creator_id", Message: "is required"})
	}
	if strings.TrimSpace(b.Title) == "" {
		fields = append(fields, FieldError{Field: "title", Message: "is required"})
	}
	if b.EstimatedCost != nil && *b.EstimatedCost < 0 {
		fields = append(fields, FieldError{Field: "estimated_cost", Message: "must not be negative"})
	}
	if b.KPITarget != nil && *b.KPITarget < 0 {
		fields = append(fields, FieldError{Field: "kpi_target", Message: "must not be negative"})
	}
	if b.BusinessObjective != "" && !b.BusinessObjective.Valid() {
		fields = append(fields, FieldError{Field: "business_objective", Message: "unknown value " + string(b.BusinessObjective)})
	}
	if b.DecisionContext != "" && !b.DecisionContext.Valid() {
		fields = append(fields, FieldError{Field: "decision_context", Message: "unknown value " + string(b.DecisionContext)})
	}
	switch b.ConfidenceLevel {
	case "", ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
	default:
		fields = append(fields, FieldError{Field: "confidence_level", Message: "unknown value " + string(b.ConfidenceLevel)})
	}
	if b.StartDate != nil && b.EndDate != nil && b.EndDate.Before(*b.StartDate) {
		fields = append(fields, FieldError{Field: "end_date", Message: "must not be earlier than start_date"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
