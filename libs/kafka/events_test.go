package kafka

import (
	"testing"
	"time"
)

func TestNewEnvelopeWithID(t *testing.T) {
	env, err := NewEnvelopeWithID("evt-1", "trades.settled", 1, "corr-1")
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if env.EventID != "evt-1" || env.EventType != "trades.settled" || env.EventVersion != 1 {
		t.Fatalf("envelope = %+v", env)
	}
	if env.Timestamp.IsZero() {
		t.Fatalf("timestamp not set")
	}
	if err := env.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	cases := []struct {
		name      string
		id, typ   string
		version   int
	}{
		{"missing id", "", "t", 1},
		{"missing type", "id", "", 1},
		{"zero version", "id", "t", 0},
		{"negative version", "id", "t", -1},
	}
	for _, tc := range cases {
		if _, err := NewEnvelopeWithID(tc.id, tc.typ, tc.version, ""); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestValidateRejectsZeroTimestamp(t *testing.T) {
	env := Envelope{EventID: "id", EventType: "t", EventVersion: 1}
	if err := env.Validate(); err == nil {
		t.Fatalf("zero timestamp accepted")
	}
	env.Timestamp = time.Now().UTC()
	if err := env.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestDeterministicEventID(t *testing.T) {
	a := DeterministicEventID("trades.settled", "trade-1")
	b := DeterministicEventID("trades.settled", "trade-1")
	if a != b {
		t.Fatalf("same parts produced %s and %s", a, b)
	}
	if a == DeterministicEventID("trades.settled", "trade-2") {
		t.Fatalf("different parts collided")
	}
	// Part boundaries matter: ("ab","c") and ("a","bc") must differ.
	if DeterministicEventID("ab", "c") == DeterministicEventID("a", "bc") {
		t.Fatalf("part boundaries ignored")
	}
}
