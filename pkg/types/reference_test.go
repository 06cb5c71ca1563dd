package types

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestNewReference(t *testing.T) {
	id := uuid.New()
	if ref := NewReference(&id, "t_shirt_1"); !IsActive(ref) {
		t.Fatalf("expected active reference, got %#v", ref)
	}
	if ref := NewReference(nil, "t_shirt_1"); IsActive(ref) {
		t.Fatalf("expected archived reference, got %#v", ref)
	}
	nilID := uuid.Nil
	if ref := NewReference(&nilID, "t_shirt_1"); IsActive(ref) {
		t.Fatalf("nil uuid should be archived")
	}
}

func TestMatchReference(t *testing.T) {
	id := uuid.New()
	label := func(ref Reference) string {
		return MatchReference(ref,
			func(a Active) string { return "active:" + a.Name },
			func(a Archived) string { return "archived:" + a.Name },
		)
	}

	if got := label(NewReference(&id, "hoodie_1")); got != "active:hoodie_1" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := label(NewReference(nil, "hoodie_1")); got != "archived:hoodie_1" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := label(nil); got != "archived:" {
		t.Fatalf("nil reference should match archived, got %q", got)
	}

	if got, ok := ReferenceID(NewReference(&id, "x")); !ok || got != id {
		t.Fatalf("expected reference id %s, got %s", id, got)
	}
}

func TestReferenceJSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		Item Reference `json:"item"`
	}{Item: Archived{Name: "pant_2"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"item":{"state":"archived","name":"pant_2"}}` {
		t.Fatalf("unexpected json %s", raw)
	}
}

func TestParseCartContext(t *testing.T) {
	id := uuid.New()
	if got := ParseCartContext(" " + id.String() + " "); got.CartID != id || !got.HasCart() {
		t.Fatalf("expected cart id %s, got %s", id, got.CartID)
	}
	if got := ParseCartContext("not-a-uuid"); got.HasCart() {
		t.Fatalf("malformed id should produce empty context")
	}
}
