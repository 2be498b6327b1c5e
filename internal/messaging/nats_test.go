package messaging

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/whisper/battlewatch/internal/battle"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	published []published
	err       error
	drained   bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, published{subject, data})
	return nil
}

func (f *fakeConn) Subscribe(string, nats.MsgHandler) (*nats.Subscription, error) {
	return nil, errors.New("not supported")
}

func (f *fakeConn) Drain() error      { f.drained = true; return nil }
func (f *fakeConn) IsConnected() bool { return true }

func TestPublishBattleStarted(t *testing.T) {
	fc := &fakeConn{}
	c := newClient(fc, zap.NewNop())

	details := battle.Details{
		BattleID: "0xb1",
		Location: &battle.Location{X: 10, Y: 20},
		Realm:    &battle.RealmInfo{Name: "Stonehold", OwnerName: "Carol"},
	}
	if err := c.PublishBattleStarted(details); err != nil {
		t.Fatalf("PublishBattleStarted: %v", err)
	}

	if len(fc.published) != 1 || fc.published[0].subject != SubjectBattleStarted {
		t.Fatalf("published = %+v", fc.published)
	}
	var got battle.Details
	if err := json.Unmarshal(fc.published[0].data, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.BattleID != "0xb1" || got.Location == nil || got.Location.Y != 20 || got.Realm == nil || got.Realm.Name != "Stonehold" {
		t.Errorf("payload = %+v", got)
	}
}

func TestPublishSubscriberRemoved(t *testing.T) {
	fc := &fakeConn{}
	c := newClient(fc, zap.NewNop())
	c.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	if err := c.PublishSubscriberRemoved("42", "bot was blocked by the user"); err != nil {
		t.Fatalf("PublishSubscriberRemoved: %v", err)
	}

	var got SubscriberRemoved
	if err := json.Unmarshal(fc.published[0].data, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if fc.published[0].subject != SubjectSubscriberRemoved || got.Handle != "42" || !got.RemovedAt.Equal(c.now()) {
		t.Errorf("published %s %+v", fc.published[0].subject, got)
	}
}

func TestPublishError(t *testing.T) {
	fc := &fakeConn{err: nats.ErrConnectionClosed}
	c := newClient(fc, zap.NewNop())

	if err := c.PublishSubscriberRemoved("42", "gone"); !errors.Is(err, nats.ErrConnectionClosed) {
		t.Errorf("err = %v, want ErrConnectionClosed", err)
	}
}

func TestNilClientIsNoop(t *testing.T) {
	var c *NATSClient

	if err := c.PublishBattleStarted(battle.Details{BattleID: "0xb1"}); err != nil {
		t.Errorf("PublishBattleStarted on nil client: %v", err)
	}
	if err := c.PublishSubscriberRemoved("42", "gone"); err != nil {
		t.Errorf("PublishSubscriberRemoved on nil client: %v", err)
	}
	if c.IsConnected() {
		t.Error("nil client reports connected")
	}
	c.Close()
}

func TestClose(t *testing.T) {
	fc := &fakeConn{}
	newClient(fc, zap.NewNop()).Close()
	if !fc.drained {
		t.Error("Close did not drain the connection")
	}
}
