package policy

/*
Файл engine.go реализует Policy Engine: авторитетное решение в момент отправки брифа.

Движок прогоняет упорядоченную таблицу правил, собирает причины автоматического отказа
и независимо от них причины, требующие подписи владельца. Для некорректного входа
ошибок нет: отсутствующие поля трактуются как false / 0 / пустой список.
*/

import (
	"fmt"

	"github.com/xela07ax/brief-governance/internal/domain"
)

type Engine struct {
	settings SettingsSource
	catalog  *Catalog
	rules    []Rule
}

// NewEngine без settings работает на дефолтах, без каталога на встроенном справочнике.
func NewEngine(settings SettingsSource, catalog *Catalog) *Engine {
	if settings == nil {
		settings = StaticSettings(DefaultSettings())
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Engine{settings: settings, catalog: catalog, rules: DefaultRules()}
}

// WithRules подменяет таблицу правил (порядок сохраняется).
func (e *Engine) WithRules(rules []Rule) *Engine {
	return &Engine{settings: e.settings, catalog: e.catalog, rules: append([]Rule(nil), rules...)}
}

func (e *Engine) Catalog() *Catalog { return e.catalog }

func (e *Engine) Settings() Settings { return e.settings.Settings() }

// Check возвращает полный результат для любого входа.
func (e *Engine) Check(in Input) domain.PolicyResult {
	s := e.settings.Settings()
	env := Env{Settings: s, Catalog: e.catalog}

	res := domain.PolicyResult{
		Rules:                make([]domain.RuleOutcome, 0, len(e.rules)),
		AutoRejectReasons:    make([]string, 0),
		OwnerApprovalReasons: make([]string, 0),
		EvaluatedAt:          in.Now,
	}

	for _, r := range e.rules {
		passed, msg := r.Eval(in, env)
		res.Rules = append(res.Rules, domain.RuleOutcome{RuleID: r.ID, Passed: passed, Message: msg})
		if !passed && r.Class == AutoReject {
			res.AutoRejectReasons = append(res.AutoRejectReasons, msg)
		}
	}

	res.OwnerApprovalReasons = ownerApprovalReasons(in, s)
	res.RequiresOwnerApproval = len(res.OwnerApprovalReasons) > 0
	res.RequiresEscalation = in.IsCrisis || in.TemplateBlacklisted || in.EstimatedCost > s.OwnerApprovalCost
	res.CanSubmit = len(res.AutoRejectReasons) == 0
	res.SuggestedPriority = SuggestPriority(in, s)
	return res
}

// ownerApprovalReasons условия повышенного согласования. Отправку они не блокируют.
func ownerApprovalReasons(in Input, s Settings) []string {
	reasons := make([]string, 0)
	if in.EstimatedCost > s.OwnerApprovalCost {
		reasons = append(reasons, fmt.Sprintf("Estimated cost %.2f exceeds the %.0f owner-approval threshold", in.EstimatedCost, s.OwnerApprovalCost))
	}
	if in.IsCrisis {
		reasons = append(reasons, "Crisis communication")
	}
	if in.DecisionContext == domain.DecisionCentral {
		reasons = append(reasons, "Central decision context")
	}
	return reasons
}

// CanSubmit второй гейт отправки: нет причин автоматического отказа.
func CanSubmit(res domain.PolicyResult) bool {
	return len(res.AutoRejectReasons) == 0
}
