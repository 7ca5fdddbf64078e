package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/brief-governance/internal/domain"
	"github.com/xela07ax/brief-governance/internal/escalation"
	"github.com/xela07ax/brief-governance/internal/infra"
	"go.uber.org/zap"
)

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	return redis.NewIntResult(1, f.err)
}

func TestRedisPublisherSendsJSON(t *testing.T) {
	rdb := &fakePublisher{}
	p := NewRedisPublisher(rdb, zap.NewNop())

	n := escalation.Notification{
		ID:        "n-1",
		Recipient: escalation.Recipient{Role: domain.RoleOwner},
		Reason:    escalation.ReasonOwnerApproval,
		BriefID:   "b-1",
		BriefCode: "BR-2026-0001",
	}
	if err := p.Send(context.Background(), n); err != nil {
		t.Fatalf("send: %v", err)
	}
	if rdb.channel != infra.RedisChanNotifications {
		t.Fatalf("channel = %q", rdb.channel)
	}
	var got escalation.Notification
	if err := json.Unmarshal(rdb.payload, &got); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if got.Reason != n.Reason || got.Recipient.Role != domain.RoleOwner {
		t.Fatalf("payload = %+v", got)
	}
}

func TestRedisPublisherWrapsError(t *testing.T) {
	boom := errors.New("connection refused")
	p := NewRedisPublisher(&fakePublisher{err: boom}, zap.NewNop())

	if err := p.Send(context.Background(), escalation.Notification{ID: "n-1"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
