package policy

import (
	"time"

	"github.com/xela07ax/brief-governance/internal/domain"
)

// Input плоская проекция Brief + Club + Template. Движок не видит сущности целиком.
type Input struct {
	Objective       domain.BusinessObjective `json:"objective"`
	DecisionContext domain.DecisionContext   `json:"decision_context"`
	Deadline        *time.Time               `json:"deadline,omitempty"`
	EstimatedCost   float64                  `json:"estimated_cost"`
	IsCrisis        bool                     `json:"is_crisis"`
	Formats         []string                 `json:"formats"`
	CustomFormats   []string                 `json:"custom_formats"`

	TemplateCode        string `json:"template_code"`
	TemplateInternal    bool   `json:"template_internal"`
	TemplateBlacklisted bool   `json:"template_blacklisted"`
	BlacklistReason     string `json:"blacklist_reason,omitempty"`

	ClubTier domain.ClubTier `json:"club_tier"`
	Context  string          `json:"context"`
	Title    string          `json:"title"`

	// Now момент оценки, приходит снаружи
	Now time.Time `json:"now"`
}

// InputFromBrief собирает вход движка. Отсутствующие шаблон и клуб дают значения по умолчанию.
func InputFromBrief(b *domain.Brief, tpl *domain.RequestTemplate, club *domain.Club, now time.Time) Input {
	in := Input{
		Objective:       b.BusinessObjective,
		DecisionContext: b.DecisionContext,
		Deadline:        b.Deadline,
		EstimatedCost:   b.Cost(),
		IsCrisis:        b.IsCrisisCommunication,
		Formats:         b.Formats,
		CustomFormats:   b.CustomFormats,
		Context:         b.Context,
		Title:           b.Title,
		Now:             now,
	}
	if tpl != nil {
		in.TemplateCode = tpl.Code
		in.TemplateInternal = tpl.IsInternal
		in.TemplateBlacklisted = tpl.IsBlacklisted
		in.BlacklistReason = tpl.BlacklistReason
	}
	if club != nil {
		in.ClubTier = club.Tier
	}
	return in
}
