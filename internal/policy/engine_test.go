package policy

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xela07ax/brief-governance/internal/domain"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func inDays(days int) *time.Time {
	t := testNow.AddDate(0, 0, days)
	return &t
}

// cleanInput проходит все правила без причин для владельца.
func cleanInput() Input {
	return Input{
		Objective:       domain.ObjectiveRetentionEngagement,
		DecisionContext: domain.DecisionLocal,
		Deadline:        inDays(30),
		EstimatedCost:   500,
		Formats:         []string{"instagram_post", "poster_a3"},
		TemplateCode:    "SOCIAL_CAMPAIGN",
		ClubTier:        domain.TierStandard,
		Context:         "Spring retention push for members who have not visited in 30 days",
		Title:           "Come back in spring",
		Now:             testNow,
	}
}

func newTestEngine() *Engine {
	return NewEngine(StaticSettings(DefaultSettings()), DefaultCatalog())
}

func ruleOutcome(t *testing.T, res domain.PolicyResult, id string) domain.RuleOutcome {
	t.Helper()
	for _, o := range res.Rules {
		if o.RuleID == id {
			return o
		}
	}
	t.Fatalf("rule %s not evaluated", id)
	return domain.RuleOutcome{}
}

func TestCheckCleanBrief(t *testing.T) {
	res := newTestEngine().Check(cleanInput())

	if !res.CanSubmit || !CanSubmit(res) {
		t.Fatalf("expected can submit, got reasons %v", res.AutoRejectReasons)
	}
	if len(res.Rules) != len(DefaultRules()) {
		t.Fatalf("expected %d rule outcomes, got %d", len(DefaultRules()), len(res.Rules))
	}
	for _, o := range res.Rules {
		if !o.Passed {
			t.Fatalf("rule %s failed: %s", o.RuleID, o.Message)
		}
	}
	if res.RequiresOwnerApproval || len(res.OwnerApprovalReasons) != 0 {
		t.Fatalf("unexpected owner approval: %v", res.OwnerApprovalReasons)
	}
	if res.RequiresEscalation {
		t.Fatalf("unexpected escalation")
	}
	if res.SuggestedPriority != domain.PriorityLow {
		t.Fatalf("expected LOW priority for long-lead cheap brief, got %s", res.SuggestedPriority)
	}
	if !res.EvaluatedAt.Equal(testNow) {
		t.Fatalf("expected evaluatedAt = now, got %s", res.EvaluatedAt)
	}
}

func TestCheckBlacklistedTemplateAutoRejects(t *testing.T) {
	in := cleanInput()
	in.TemplateCode = "PRINT_LEGACY"
	in.TemplateBlacklisted = true
	in.BlacklistReason = "discontinued format"

	res := newTestEngine().Check(in)

	if res.CanSubmit || CanSubmit(res) {
		t.Fatalf("blacklisted template must block submission")
	}
	if len(res.AutoRejectReasons) != 1 || !strings.Contains(res.AutoRejectReasons[0], "discontinued format") {
		t.Fatalf("expected blacklist reason, got %v", res.AutoRejectReasons)
	}
	if !res.RequiresEscalation {
		t.Fatalf("blacklisted template must escalate")
	}
	if ruleOutcome(t, res, "blacklisted_template").Passed {
		t.Fatalf("blacklisted_template should fail")
	}
}

func TestCheckHighCostRequiresOwnerApprovalButCanSubmit(t *testing.T) {
	in := cleanInput()
	in.EstimatedCost = 15000

	res := newTestEngine().Check(in)

	if !res.CanSubmit {
		t.Fatalf("owner approval must not block submission: %v", res.AutoRejectReasons)
	}
	if !res.RequiresOwnerApproval || len(res.OwnerApprovalReasons) != 1 {
		t.Fatalf("expected single owner approval reason, got %v", res.OwnerApprovalReasons)
	}
	if !strings.Contains(res.OwnerApprovalReasons[0], "owner-approval threshold") {
		t.Fatalf("unexpected reason: %s", res.OwnerApprovalReasons[0])
	}
	if res.SuggestedPriority != domain.PriorityHigh {
		t.Fatalf("expected HIGH for expensive brief, got %s", res.SuggestedPriority)
	}
	if !res.RequiresEscalation {
		t.Fatalf("cost above threshold must escalate")
	}
}

func TestCheckCrisisWithShortDeadline(t *testing.T) {
	in := cleanInput()
	in.IsCrisis = true
	in.Deadline = inDays(1)
	in.Context = "Pool closure after water contamination, members must be informed today"

	res := newTestEngine().Check(in)

	if !res.CanSubmit {
		t.Fatalf("justified crisis must be submittable: %v", res.AutoRejectReasons)
	}
	if !res.RequiresEscalation {
		t.Fatalf("crisis must escalate")
	}
	if res.SuggestedPriority != domain.PriorityCritical {
		t.Fatalf("expected CRITICAL, got %s", res.SuggestedPriority)
	}
	if !reflect.DeepEqual(res.OwnerApprovalReasons, []string{"Crisis communication"}) {
		t.Fatalf("unexpected owner reasons %v", res.OwnerApprovalReasons)
	}
}

func TestCheckRuleFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Input)
		rule   string
		reject bool
	}{
		{"internal template", func(in *Input) { in.TemplateInternal = true }, "internal_template", true},
		{"crisis without justification", func(in *Input) { in.IsCrisis = true; in.Context = "urgent" }, "crisis_justification", true},
		{"cost above ceiling", func(in *Input) { in.EstimatedCost = 60000 }, "cost_ceiling", true},
		{"flagship format for standard club", func(in *Input) { in.Formats = []string{"billboard"} }, "tier_formats", true},
		{"premium format for empty tier", func(in *Input) { in.ClubTier = ""; in.Formats = []string{"video_short"} }, "tier_formats", true},
		{"unknown format", func(in *Input) { in.Formats = []string{"hologram"} }, "format_validity", true},
		{"blank custom format", func(in *Input) { in.CustomFormats = []string{"  "} }, "format_validity", true},
		{"deadline in the past", func(in *Input) { in.Deadline = inDays(-2) }, "deadline_not_past", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := cleanInput()
			tc.mutate(&in)
			res := newTestEngine().Check(in)

			o := ruleOutcome(t, res, tc.rule)
			if o.Passed {
				t.Fatalf("rule %s should fail", tc.rule)
			}
			if tc.reject {
				if res.CanSubmit {
					t.Fatalf("expected auto reject from %s", tc.rule)
				}
				found := false
				for _, r := range res.AutoRejectReasons {
					if r == o.Message {
						found = true
					}
				}
				if !found {
					t.Fatalf("reason %q not in %v", o.Message, res.AutoRejectReasons)
				}
			} else if !res.CanSubmit {
				t.Fatalf("advisory rule %s must not block: %v", tc.rule, res.AutoRejectReasons)
			}
		})
	}
}

func TestCheckTierFormatsAllowedForHigherTiers(t *testing.T) {
	in := cleanInput()
	in.ClubTier = domain.TierFlagship
	in.Formats = []string{"billboard", "video_short", "email"}
	if res := newTestEngine().Check(in); !ruleOutcome(t, res, "tier_formats").Passed {
		t.Fatalf("flagship club should access all formats")
	}

	in.ClubTier = domain.TierPremium
	in.Formats = []string{"video_short", "landing_page"}
	if res := newTestEngine().Check(in); !ruleOutcome(t, res, "tier_formats").Passed {
		t.Fatalf("premium club should access premium formats")
	}
}

func TestCheckUnknownClubTierFallsBackToStandard(t *testing.T) {
	for _, tier := range []domain.ClubTier{"standard", " Premium ", "GOLD", ""} {
		t.Run(string(tier), func(t *testing.T) {
			in := cleanInput()
			in.ClubTier = tier
			res := newTestEngine().Check(in)
			if !ruleOutcome(t, res, "tier_formats").Passed || !res.CanSubmit {
				t.Fatalf("standard formats must pass for tier %q: %v", tier, res.AutoRejectReasons)
			}
		})
	}

	in := cleanInput()
	in.ClubTier = "GOLD"
	in.Formats = []string{"video_short"}
	res := newTestEngine().Check(in)
	if ruleOutcome(t, res, "tier_formats").Passed || res.CanSubmit {
		t.Fatalf("unknown tier must not unlock premium formats")
	}

	in.ClubTier = "premium"
	if res := newTestEngine().Check(in); !ruleOutcome(t, res, "tier_formats").Passed {
		t.Fatalf("tier match must ignore case: %v", res.AutoRejectReasons)
	}
}

func TestCheckUnknownFormatReportedOnce(t *testing.T) {
	in := cleanInput()
	in.Formats = []string{"hologram"}
	res := newTestEngine().Check(in)
	if !ruleOutcome(t, res, "tier_formats").Passed {
		t.Fatalf("tier rule must ignore unknown formats")
	}
	if len(res.AutoRejectReasons) != 1 {
		t.Fatalf("expected one reason, got %v", res.AutoRejectReasons)
	}
}

func TestCheckAutoRejectOrderFollowsRuleTable(t *testing.T) {
	in := cleanInput()
	in.TemplateBlacklisted = true
	in.EstimatedCost = 99999
	in.Formats = []string{"hologram"}

	res := newTestEngine().Check(in)
	if len(res.AutoRejectReasons) != 3 {
		t.Fatalf("expected 3 reasons, got %v", res.AutoRejectReasons)
	}
	if !strings.Contains(res.AutoRejectReasons[0], "blacklisted") ||
		!strings.Contains(res.AutoRejectReasons[1], "ceiling") ||
		!strings.Contains(res.AutoRejectReasons[2], "Unknown formats") {
		t.Fatalf("unexpected order: %v", res.AutoRejectReasons)
	}
}

func TestCheckEmptyInputReturnsCompleteResult(t *testing.T) {
	res := newTestEngine().Check(Input{})

	if len(res.Rules) != len(DefaultRules()) {
		t.Fatalf("expected all rules evaluated, got %d", len(res.Rules))
	}
	if res.AutoRejectReasons == nil || res.OwnerApprovalReasons == nil {
		t.Fatalf("reason lists must be non-nil")
	}
	if !res.CanSubmit {
		t.Fatalf("empty input has nothing to reject: %v", res.AutoRejectReasons)
	}
	if res.SuggestedPriority != domain.PriorityMedium {
		t.Fatalf("expected MEDIUM default, got %s", res.SuggestedPriority)
	}
}

func TestCheckInvariants(t *testing.T) {
	inputs := []Input{cleanInput(), {}}
	mut := []func(*Input){
		func(in *Input) { in.TemplateBlacklisted = true },
		func(in *Input) { in.EstimatedCost = 20000 },
		func(in *Input) { in.EstimatedCost = 70000 },
		func(in *Input) { in.IsCrisis = true },
		func(in *Input) { in.DecisionContext = domain.DecisionCentral },
		func(in *Input) { in.Formats = []string{"radio_spot"} },
	}
	for _, m := range mut {
		in := cleanInput()
		m(&in)
		inputs = append(inputs, in)
	}

	e := newTestEngine()
	for i, in := range inputs {
		res := e.Check(in)
		if res.CanSubmit != (len(res.AutoRejectReasons) == 0) {
			t.Fatalf("input %d: canSubmit=%v with reasons %v", i, res.CanSubmit, res.AutoRejectReasons)
		}
		if res.RequiresOwnerApproval != (len(res.OwnerApprovalReasons) > 0) {
			t.Fatalf("input %d: owner approval flag disagrees with reasons %v", i, res.OwnerApprovalReasons)
		}
		if res.RequiresOwnerApproval && res.OwnerApprovalReason() == "" {
			t.Fatalf("input %d: empty owner approval reason", i)
		}
	}
}

func TestCheckIsDeterministic(t *testing.T) {
	in := cleanInput()
	in.EstimatedCost = 12000
	in.IsCrisis = true
	in.DecisionContext = domain.DecisionCentral

	e := newTestEngine()
	first := e.Check(in)
	for i := 0; i < 5; i++ {
		if got := e.Check(in); !reflect.DeepEqual(first, got) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, first, got)
		}
	}
}

func TestCheckCentralContextNeedsOwner(t *testing.T) {
	in := cleanInput()
	in.DecisionContext = domain.DecisionCentral
	res := newTestEngine().Check(in)
	if !res.RequiresOwnerApproval || res.OwnerApprovalReason() != "Central decision context" {
		t.Fatalf("unexpected owner approval: %v", res.OwnerApprovalReasons)
	}
	if res.RequiresEscalation {
		t.Fatalf("central context alone does not escalate")
	}
}

func TestCheckOwnerThresholdAgreesWithPriority(t *testing.T) {
	in := cleanInput()
	in.Deadline = inDays(10)
	in.EstimatedCost = DefaultSettings().OwnerApprovalCost

	res := newTestEngine().Check(in)
	if res.RequiresOwnerApproval || res.SuggestedPriority != domain.PriorityMedium {
		t.Fatalf("cost at threshold: owner=%v priority=%s", res.RequiresOwnerApproval, res.SuggestedPriority)
	}

	in.EstimatedCost += 0.01
	res = newTestEngine().Check(in)
	if !res.RequiresOwnerApproval || res.SuggestedPriority != domain.PriorityHigh {
		t.Fatalf("cost above threshold: owner=%v priority=%s", res.RequiresOwnerApproval, res.SuggestedPriority)
	}
}

func TestEngineUsesCurrentSettings(t *testing.T) {
	in := cleanInput()
	in.EstimatedCost = 60000

	strict := newTestEngine()
	if strict.Check(in).CanSubmit {
		t.Fatalf("default ceiling should reject 60000")
	}

	s := DefaultSettings()
	s.MaxCost = 100000
	relaxed := NewEngine(StaticSettings(s), nil)
	if res := relaxed.Check(in); !res.CanSubmit {
		t.Fatalf("raised ceiling should allow 60000: %v", res.AutoRejectReasons)
	}
}

func TestWithRulesReplacesTable(t *testing.T) {
	e := newTestEngine().WithRules([]Rule{
		{ID: "title_required", Class: AutoReject, Eval: func(in Input, _ Env) (bool, string) {
			if strings.TrimSpace(in.Title) == "" {
				return false, "Title is required"
			}
			return true, "Title present"
		}},
	})

	res := e.Check(Input{Now: testNow})
	if len(res.Rules) != 1 || res.CanSubmit {
		t.Fatalf("custom rule table not applied: %+v", res)
	}
	if len(newTestEngine().Check(Input{}).Rules) != len(DefaultRules()) {
		t.Fatalf("WithRules must not mutate the original engine")
	}
}

func TestSuggestPriority(t *testing.T) {
	s := DefaultSettings()
	cases := []struct {
		name     string
		in       Input
		expected domain.Priority
	}{
		{"crisis wins", Input{IsCrisis: true, Deadline: inDays(60), Now: testNow}, domain.PriorityCritical},
		{"urgent deadline", Input{Deadline: inDays(3), Now: testNow}, domain.PriorityHigh},
		{"overdue deadline", Input{Deadline: inDays(-1), Now: testNow}, domain.PriorityHigh},
		{"expensive", Input{Deadline: inDays(10), EstimatedCost: 10000.01, Now: testNow}, domain.PriorityHigh},
		{"at owner threshold", Input{Deadline: inDays(10), EstimatedCost: 10000, Now: testNow}, domain.PriorityMedium},
		{"long lead and cheap", Input{Deadline: inDays(21), EstimatedCost: 1000, Now: testNow}, domain.PriorityLow},
		{"long lead but not cheap", Input{Deadline: inDays(21), EstimatedCost: 1001, Now: testNow}, domain.PriorityMedium},
		{"routine", Input{Deadline: inDays(10), Now: testNow}, domain.PriorityMedium},
		{"no deadline", Input{Now: testNow}, domain.PriorityMedium},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SuggestPriority(tc.in, s); got != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestInputFromBrief(t *testing.T) {
	cost := 2500.0
	b := &domain.Brief{
		Title:                 "Summer",
		Context:               "ctx",
		BusinessObjective:     domain.ObjectiveRevenueAcquisition,
		DecisionContext:       domain.DecisionRegional,
		EstimatedCost:         &cost,
		IsCrisisCommunication: true,
		Formats:               []string{"email"},
		Deadline:              inDays(5),
	}

	in := InputFromBrief(b, nil, nil, testNow)
	if in.EstimatedCost != 2500 || !in.IsCrisis || in.TemplateCode != "" || in.ClubTier != "" {
		t.Fatalf("unexpected input without references: %+v", in)
	}

	tpl := &domain.RequestTemplate{Code: "EVENT_PROMO", IsBlacklisted: true, BlacklistReason: "x", IsInternal: true}
	club := &domain.Club{Tier: domain.TierPremium}
	in = InputFromBrief(b, tpl, club, testNow)
	if in.TemplateCode != "EVENT_PROMO" || !in.TemplateBlacklisted || !in.TemplateInternal || in.BlacklistReason != "x" {
		t.Fatalf("template not projected: %+v", in)
	}
	if in.ClubTier != domain.TierPremium || !in.Now.Equal(testNow) {
		t.Fatalf("club/now not projected: %+v", in)
	}
}
