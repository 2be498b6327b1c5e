package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// newTestServer answers GraphQL requests with respond(req).
func newTestServer(t *testing.T, respond func(req gqlRequest) (int, string)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		status, body := respond(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(Config{Endpoint: srv.URL}, zap.NewNop())
}

const battlesBody = `{"data":{"s0EternumBattleStartDataModels":{"totalCount":2,"edges":[
 {"node":{"id":"a","event_id":"0x10","battle_entity_id":"0xb1","attacker":"0xa1","attacker_name":"0x426f62",
  "attacker_army_entity_id":7,"defender_name":"0x4361726f6c","defender":"0xd1","defender_army_entity_id":8,
  "duration_left":"0x96","x":10,"y":20,"structure_type":"Realm","timestamp":"0x6553f100"}},
 {"node":{"id":"b","event_id":"0x11","battle_entity_id":"0xb2","attacker":"0xa2","attacker_name":"0x426f62",
  "attacker_army_entity_id":9,"defender_name":"0x4361726f6c","defender":"0xd2","defender_army_entity_id":10,
  "duration_left":"0x10","x":"0x1e","y":"40","structure_type":"Bank","timestamp":"0x6553f100"}},
 {"node":{"id":"c","event_id":"0x12","battle_entity_id":"0xb3","x":"nope","y":1,"structure_type":"Bank"}}
]}}}`

func TestBattles(t *testing.T) {
	c := newTestServer(t, func(req gqlRequest) (int, string) {
		if !strings.Contains(req.Query, "s0EternumBattleStartDataModels") {
			t.Errorf("unexpected query: %s", req.Query)
		}
		return http.StatusOK, battlesBody
	})

	events, err := c.Battles(context.Background())
	if err != nil {
		t.Fatalf("Battles() error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}
	if events[0].NoLocation || events[1].NoLocation {
		t.Error("parsable coordinates flagged NoLocation")
	}
	if third := events[2]; !third.NoLocation || third.X != 0 || third.Y != 0 || third.BattleID != "0xb3" {
		t.Errorf("third = %+v, want kept with NoLocation", third)
	}

	first := events[0]
	if first.BattleID != "0xb1" || first.EventID != "0x10" {
		t.Errorf("ids = %q/%q", first.BattleID, first.EventID)
	}
	if first.X != 10 || first.Y != 20 {
		t.Errorf("coords = (%d, %d), want (10, 20)", first.X, first.Y)
	}
	if first.AttackerArmyID != "7" {
		t.Errorf("AttackerArmyID = %q, want numeric literal", first.AttackerArmyID)
	}
	if !first.IsRealm() {
		t.Error("first event should be a realm battle")
	}

	second := events[1]
	if second.X != 30 || second.Y != 40 {
		t.Errorf("coords = (%d, %d), want (30, 40)", second.X, second.Y)
	}
	if second.StructureType != "Bank" {
		t.Errorf("StructureType = %q", second.StructureType)
	}
}

func TestBattles_GraphQLError(t *testing.T) {
	c := newTestServer(t, func(gqlRequest) (int, string) {
		return http.StatusOK, `{"errors":[{"message":"model not found"}]}`
	})

	if _, err := c.Battles(context.Background()); err == nil {
		t.Fatal("expected error for GraphQL errors payload")
	}
}

func TestBattles_ServerError(t *testing.T) {
	c := newTestServer(t, func(gqlRequest) (int, string) {
		return http.StatusBadGateway, `upstream down`
	})

	if _, err := c.Battles(context.Background()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestRealmAt(t *testing.T) {
	c := newTestServer(t, func(req gqlRequest) (int, string) {
		if req.Variables["x"] != float64(10) || req.Variables["y"] != float64(20) {
			return http.StatusOK, `{"data":{"s0EternumSettleRealmDataModels":{"edges":[]}}}`
		}
		return http.StatusOK, `{"data":{"s0EternumSettleRealmDataModels":{"edges":[
			{"node":{"realm_name":"0x53746f6e65686f6c64","owner_name":"0x416c696365"}}]}}}`
	})

	realm, ok, err := c.RealmAt(context.Background(), 10, 20)
	if err != nil {
		t.Fatalf("RealmAt() error: %v", err)
	}
	if !ok {
		t.Fatal("expected realm at (10, 20)")
	}
	if realm.Name != "0x53746f6e65686f6c64" || realm.OwnerName != "0x416c696365" {
		t.Errorf("realm = %+v", realm)
	}

	_, ok, err = c.RealmAt(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("RealmAt() error: %v", err)
	}
	if ok {
		t.Error("expected no realm at (1, 1)")
	}
}

func TestScalar(t *testing.T) {
	var v struct {
		A Scalar `json:"a"`
		B Scalar `json:"b"`
		C Scalar `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"0x1f","b":42,"c":null}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != "0x1f" || v.B != "42" || v.C != "" {
		t.Errorf("scalars = %q %q %q", v.A, v.B, v.C)
	}
	if n, err := v.A.Int(); err != nil || n != 31 {
		t.Errorf("A.Int() = %d, %v", n, err)
	}
	if _, err := Scalar("x").Int(); err == nil {
		t.Error("expected error for non-numeric scalar")
	}
}
