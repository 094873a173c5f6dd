package presence

import (
	"encoding/json"
	"testing"

	"socialsync/internal/realtime"
)

func TestOverlay_PrefersLiveValue(t *testing.T) {
	o := NewOverlay()
	if !o.IsOnline("u1", true) || o.IsOnline("u1", false) {
		t.Fatal("unknown user should use the fallback")
	}

	o.Apply(realtime.PresenceChanged{UserID: "u1", IsOnline: false})
	if o.IsOnline("u1", true) {
		t.Fatal("live offline should beat a stale online record")
	}
	o.Apply(realtime.PresenceChanged{UserID: "u1", IsOnline: true})
	if !o.IsOnline("u1", false) {
		t.Fatal("live online should beat a stale offline record")
	}
	o.Apply(realtime.PresenceChanged{IsOnline: true})

	snap := o.Snapshot()
	if len(snap) != 1 || !snap["u1"] {
		t.Fatalf("unexpected snapshot %v", snap)
	}
	snap["u1"] = false
	if !o.IsOnline("u1", false) {
		t.Fatal("snapshot must be a copy")
	}

	o.Reset()
	if len(o.Snapshot()) != 0 {
		t.Fatal("Reset should clear the overlay")
	}
}

func TestOverlay_Attach(t *testing.T) {
	em := realtime.NewEmitter()
	o := NewOverlay()
	detach := o.Attach(em)

	raw, _ := json.Marshal(map[string]interface{}{"userId": "u2", "isOnline": true})
	em.Publish(realtime.Event{Name: realtime.EventPresence, Args: []json.RawMessage{raw}})
	if !o.IsOnline("u2", false) {
		t.Fatal("attached overlay should apply presence events")
	}

	detach()
	if em.Count(realtime.EventPresence) != 0 {
		t.Fatal("detach should unsubscribe")
	}
}
