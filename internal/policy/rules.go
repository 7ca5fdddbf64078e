package policy

import (
	"fmt"
	"strings"

	"github.com/xela07ax/brief-governance/internal/domain"
)

// Class определяет, что значит провал правила.
type Class int

const (
	// Advisory провал только показывается валидатору.
	Advisory Class = iota
	// AutoReject провал блокирует отправку.
	AutoReject
)

func (c Class) String() string {
	if c == AutoReject {
		return "auto_reject"
	}
	return "advisory"
}

// Env то, что правилу доступно кроме входа.
type Env struct {
	Settings Settings
	Catalog  *Catalog
}

// Rule именованный чистый предикат. Порядок в таблице задает порядок причин отказа.
type Rule struct {
	ID    string
	Class Class
	// Eval возвращает passed и человекочитаемое сообщение.
	Eval func(in Input, env Env) (bool, string)
}

// DefaultRules таблица правил по умолчанию.
func DefaultRules() []Rule {
	return []Rule{
		{ID: "blacklisted_template", Class: AutoReject, Eval: ruleBlacklistedTemplate},
		{ID: "internal_template", Class: AutoReject, Eval: ruleInternalTemplate},
		{ID: "crisis_justification", Class: AutoReject, Eval: ruleCrisisJustification},
		{ID: "cost_ceiling", Class: AutoReject, Eval: ruleCostCeiling},
		{ID: "tier_formats", Class: AutoReject, Eval: ruleTierFormats},
		{ID: "format_validity", Class: AutoReject, Eval: ruleFormatValidity},
		{ID: "deadline_not_past", Class: Advisory, Eval: ruleDeadlineNotPast},
	}
}

func ruleBlacklistedTemplate(in Input, _ Env) (bool, string) {
	if !in.TemplateBlacklisted {
		return true, "Template is not blacklisted"
	}
	reason := in.BlacklistReason
	if reason == "" {
		reason = "no reason given"
	}
	return false, fmt.Sprintf("Template %s is blacklisted: %s", in.TemplateCode, reason)
}

func ruleInternalTemplate(in Input, _ Env) (bool, string) {
	if !in.TemplateInternal {
		return true, "Template is available to clubs"
	}
	return false, fmt.Sprintf("Template %s is internal and cannot be requested by a club", in.TemplateCode)
}

func ruleCrisisJustification(in Input, env Env) (bool, string) {
	if !in.IsCrisis {
		return true, "Not a crisis communication"
	}
	n := len([]rune(strings.TrimSpace(in.Context)))
	if n < env.Settings.CrisisMinContext {
		return false, fmt.Sprintf("Crisis communication requires a justification of at least %d characters (got %d)",
			env.Settings.CrisisMinContext, n)
	}
	return true, "Crisis communication is justified"
}

func ruleCostCeiling(in Input, env Env) (bool, string) {
	if in.EstimatedCost > env.Settings.MaxCost {
		return false, fmt.Sprintf("Estimated cost %.2f exceeds the %.0f ceiling", in.EstimatedCost, env.Settings.MaxCost)
	}
	return true, "Estimated cost is within the ceiling"
}

func ruleTierFormats(in Input, env Env) (bool, string) {
	// Неизвестный тир (опечатка, регистр, новый тир) считаем STANDARD: самый узкий набор форматов
	tier := in.ClubTier
	rank := tierRank(tier)
	if rank < 0 || tier == "" {
		tier, rank = domain.TierStandard, 0
	}
	var denied []string
	for _, code := range in.Formats {
		f, ok := env.Catalog.Format(code)
		if !ok {
			continue // неизвестные форматы ловит format_validity
		}
		if tierRank(f.MinTier) > rank {
			denied = append(denied, fmt.Sprintf("%s (%s)", code, f.MinTier))
		}
	}
	if len(denied) > 0 {
		return false, fmt.Sprintf("Formats not available for %s clubs: %s", tier, strings.Join(denied, ", "))
	}
	return true, "Requested formats match the club tier"
}

func ruleFormatValidity(in Input, env Env) (bool, string) {
	var unknown []string
	for _, code := range in.Formats {
		if _, ok := env.Catalog.Format(code); !ok {
			unknown = append(unknown, code)
		}
	}
	for _, cf := range in.CustomFormats {
		if strings.TrimSpace(cf) == "" {
			unknown = append(unknown, "<blank custom format>")
		}
	}
	if len(unknown) > 0 {
		return false, "Unknown formats: " + strings.Join(unknown, ", ")
	}
	return true, "All formats are valid"
}

func ruleDeadlineNotPast(in Input, _ Env) (bool, string) {
	if in.Deadline == nil {
		return true, "No deadline to check"
	}
	if in.Deadline.Before(in.Now) {
		return false, "Deadline is already in the past"
	}
	return true, "Deadline is in the future"
}
