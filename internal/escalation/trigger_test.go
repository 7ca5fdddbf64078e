package escalation

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/xela07ax/brief-governance/internal/domain"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newTestTrigger() *Trigger {
	n := 0
	return &Trigger{
		Now: func() time.Time { return testNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("n-%d", n)
		},
	}
}

func testBrief() *domain.Brief {
	return &domain.Brief{ID: "b-1", Code: "BR-2026-0001", ClubID: "club-1", CreatorID: "mgr-1"}
}

type pair struct {
	r      Recipient
	reason string
}

func pairs(ns []Notification) []pair {
	out := make([]pair, 0, len(ns))
	for _, n := range ns {
		out = append(out, pair{n.Recipient, n.Reason})
	}
	return out
}

func TestDeriveSubmitted(t *testing.T) {
	manager := domain.Actor{UserID: "mgr-1", Role: domain.RoleManager}

	cases := []struct {
		name   string
		kind   Kind
		mutate func(*domain.Brief)
		want   []pair
	}{
		{"plain submit", KindSubmitted, func(*domain.Brief) {}, []pair{
			{Recipient{Role: domain.RoleValidator, ClubID: "club-1"}, ReasonBriefSubmitted},
		}},
		{"resubmit", KindResubmitted, func(*domain.Brief) {}, []pair{
			{Recipient{Role: domain.RoleValidator, ClubID: "club-1"}, ReasonBriefResubmitted},
		}},
		{"owner approval", KindSubmitted, func(b *domain.Brief) {
			b.RequiresOwnerApproval = true
			b.OwnerApprovalReason = "cost"
		}, []pair{
			{Recipient{Role: domain.RoleValidator, ClubID: "club-1"}, ReasonBriefSubmitted},
			{Recipient{Role: domain.RoleOwner}, ReasonOwnerApproval},
		}},
		{"crisis", KindSubmitted, func(b *domain.Brief) {
			b.IsCrisisCommunication = true
			b.RequiresOwnerApproval = true
			b.PolicyResult = &domain.PolicyResult{RequiresEscalation: true}
		}, []pair{
			{Recipient{Role: domain.RoleValidator, ClubID: "club-1"}, ReasonBriefSubmitted},
			{Recipient{Role: domain.RoleOwner}, ReasonOwnerApproval},
			{Recipient{Role: domain.RoleOwner}, ReasonCrisis},
			{Recipient{Role: domain.RoleAdmin}, ReasonCrisis},
		}},
		{"policy escalation without crisis", KindSubmitted, func(b *domain.Brief) {
			b.PolicyResult = &domain.PolicyResult{RequiresEscalation: true}
		}, []pair{
			{Recipient{Role: domain.RoleValidator, ClubID: "club-1"}, ReasonBriefSubmitted},
			{Recipient{Role: domain.RoleAdmin}, ReasonPolicyEscalation},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := testBrief()
			tc.mutate(b)
			got := pairs(newTestTrigger().Derive(Event{Kind: tc.kind, Brief: b, Actor: manager}))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %+v\nwant %+v", got, tc.want)
			}
		})
	}
}

func TestDeriveDecisions(t *testing.T) {
	validator := domain.Actor{UserID: "val-1", Role: domain.RoleValidator, ClubIDs: []string{"club-1"}}
	cases := []struct {
		status domain.BriefStatus
		want   []pair
	}{
		{domain.StatusApproved, []pair{
			{Recipient{UserID: "mgr-1"}, ReasonBriefApproved},
			{Recipient{Role: domain.RoleProduction}, ReasonProductionQueued},
		}},
		{domain.StatusRejected, []pair{{Recipient{UserID: "mgr-1"}, ReasonBriefRejected}}},
		{domain.StatusChangesRequested, []pair{{Recipient{UserID: "mgr-1"}, ReasonChangesRequested}}},
	}
	for _, tc := range cases {
		b := testBrief()
		b.Status = tc.status
		got := pairs(newTestTrigger().Derive(Event{Kind: KindDecided, Brief: b, Actor: validator}))
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %+v want %+v", tc.status, got, tc.want)
		}
	}
}

func TestDeriveEdits(t *testing.T) {
	b := testBrief()
	if n := newTestTrigger().Derive(Event{Kind: KindEdited, Brief: b, Actor: domain.Actor{UserID: "mgr-1", Role: domain.RoleManager}}); len(n) != 0 {
		t.Fatalf("manager edit must be silent: %+v", n)
	}
	n := newTestTrigger().Derive(Event{Kind: KindEdited, Brief: b, Actor: domain.Actor{UserID: "val-1", Role: domain.RoleValidator}})
	if len(n) != 1 || n[0].Reason != ReasonValidatorEdit || n[0].Recipient.UserID != "mgr-1" {
		t.Fatalf("validator edit must notify the creator: %+v", n)
	}
}

func TestDeriveCancelled(t *testing.T) {
	b := testBrief()
	b.Status = domain.StatusCancelled

	// Сам автор отменил черновик: никому
	if n := newTestTrigger().Derive(Event{Kind: KindCancelled, Brief: b, Actor: domain.Actor{UserID: "mgr-1"}, PreviousStatus: domain.StatusDraft}); len(n) != 0 {
		t.Fatalf("self cancel of draft must be silent: %+v", n)
	}

	got := pairs(newTestTrigger().Derive(Event{
		Kind: KindCancelled, Brief: b, Actor: domain.Actor{UserID: "adm-1", Role: domain.RoleAdmin}, PreviousStatus: domain.StatusApproved,
	}))
	want := []pair{
		{Recipient{UserID: "mgr-1"}, ReasonBriefCancelled},
		{Recipient{Role: domain.RoleProduction}, ReasonBriefCancelled},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestDeriveProduction(t *testing.T) {
	b := testBrief()
	prod := domain.Actor{UserID: "prd-1", Role: domain.RoleProduction}

	task := &domain.ProductionTask{Status: domain.ProductionInProgress}
	if n := newTestTrigger().Derive(Event{Kind: KindProduction, Brief: b, Actor: prod, Task: task}); len(n) != 0 {
		t.Fatalf("intermediate production states are silent: %+v", n)
	}

	task.Status = domain.ProductionDelivered
	n := newTestTrigger().Derive(Event{Kind: KindProduction, Brief: b, Actor: prod, Task: task})
	if len(n) != 1 || n[0].Reason != ReasonProductionDelivered {
		t.Fatalf("delivery must notify creator: %+v", n)
	}
}

func TestDeriveFillsEnvelope(t *testing.T) {
	n := newTestTrigger().Derive(Event{Kind: KindSubmitted, Brief: testBrief(), Actor: domain.Actor{UserID: "mgr-1"}})
	if len(n) != 1 {
		t.Fatalf("expected one notification, got %d", len(n))
	}
	if n[0].ID != "n-1" || n[0].BriefID != "b-1" || n[0].BriefCode != "BR-2026-0001" || !n[0].CreatedAt.Equal(testNow) {
		t.Fatalf("unexpected envelope: %+v", n[0])
	}
}

func TestDeriveNilBrief(t *testing.T) {
	if n := newTestTrigger().Derive(Event{Kind: KindSubmitted}); n != nil {
		t.Fatalf("nil brief yields nothing")
	}
}
