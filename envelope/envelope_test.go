package envelope_test

import (
	"testing"
	"time"

	"github.com/axonkit/uowkernel/envelope"
)

func TestBuilders(t *testing.T) {
	tests := []struct {
		name     string
		build    func() *envelope.Envelope
		wantKind envelope.Kind
		wantType string
	}{
		{
			name: "NewCommand",
			build: func() *envelope.Envelope {
				return envelope.NewCommand("orders", "PlaceOrder", []byte(`{}`)).Build()
			},
			wantKind: envelope.KindCommand,
			wantType: "PlaceOrder",
		},
		{
			name: "NewEvent",
			build: func() *envelope.Envelope {
				return envelope.NewEvent("orders", "OrderPlaced", []byte(`{}`)).Build()
			},
			wantKind: envelope.KindEvent,
			wantType: "OrderPlaced",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := tt.build()

			if env.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", env.Kind, tt.wantKind)
			}
			if env.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", env.Type, tt.wantType)
			}
			if env.ID == "" {
				t.Error("ID should not be empty")
			}
			if env.Timestamp.IsZero() {
				t.Error("Timestamp should not be zero")
			}
		})
	}
}

func TestFluentAPI(t *testing.T) {
	headers := map[string]string{"trace-id": "abc123"}

	env := envelope.NewCommand("orders", "PlaceOrder", []byte(`{"order_id":"o-1"}`)).
		AggregateID("o-1").
		Token(7).
		Headers(headers).
		CausationID("cmd-0").
		CorrelationID("corr-1").
		Build()

	if env.AggregateID != "o-1" {
		t.Errorf("AggregateID = %v, want o-1", env.AggregateID)
	}
	if env.Token != 7 {
		t.Errorf("Token = %v, want 7", env.Token)
	}
	if env.Headers["trace-id"] != "abc123" {
		t.Errorf("Headers[trace-id] = %v, want abc123", env.Headers["trace-id"])
	}
	if env.CausationID != "cmd-0" {
		t.Errorf("CausationID = %v, want cmd-0", env.CausationID)
	}
	if env.CorrelationID != "corr-1" {
		t.Errorf("CorrelationID = %v, want corr-1", env.CorrelationID)
	}
}

func TestIsCommandIsEvent(t *testing.T) {
	cmd := envelope.NewCommand("orders", "PlaceOrder", nil).Build()
	if !cmd.IsCommand() || cmd.IsEvent() {
		t.Errorf("command envelope: IsCommand()=%v IsEvent()=%v, want true/false", cmd.IsCommand(), cmd.IsEvent())
	}

	evt := envelope.NewEvent("orders", "OrderPlaced", nil).Build()
	if evt.IsCommand() || !evt.IsEvent() {
		t.Errorf("event envelope: IsCommand()=%v IsEvent()=%v, want false/true", evt.IsCommand(), evt.IsEvent())
	}
}

func TestClone(t *testing.T) {
	original := envelope.NewCommand("orders", "PlaceOrder", []byte(`{"a":1}`)).
		Headers(map[string]string{"k": "v"}).
		Build()

	clone := original.Clone()

	if clone.ID != original.ID {
		t.Errorf("Clone ID = %v, want %v", clone.ID, original.ID)
	}
	if clone.Type != original.Type {
		t.Errorf("Clone Type = %v, want %v", clone.Type, original.Type)
	}
	if string(clone.Payload) != string(original.Payload) {
		t.Errorf("Clone Payload = %s, want %s", clone.Payload, original.Payload)
	}

	clone.Headers["k"] = "modified"
	if original.Headers["k"] == "modified" {
		t.Error("modifying clone headers modified original headers (not deep copied)")
	}

	clone.Payload[0] = 'X'
	if original.Payload[0] == 'X' {
		t.Error("modifying clone payload modified original payload (not deep copied)")
	}
}

func TestClone_NilHeaders(t *testing.T) {
	original := envelope.NewCommand("orders", "PlaceOrder", nil).Build()
	clone := original.Clone()

	if clone.Headers != nil {
		t.Errorf("Clone Headers = %v, want nil", clone.Headers)
	}
}

func TestString(t *testing.T) {
	env := envelope.NewEvent("orders", "OrderPlaced", nil).Build()
	str := env.String()

	if str == "" {
		t.Error("String() returned empty string")
	}
	for _, want := range []string{env.ID, string(env.Kind), env.Type, env.StreamID} {
		if !contains(str, want) {
			t.Errorf("String() = %v, should contain %v", str, want)
		}
	}
}

func TestIDUniqueness(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		env := envelope.NewCommand("orders", "PlaceOrder", nil).Build()
		if ids[env.ID] {
			t.Errorf("duplicate ID generated: %s", env.ID)
		}
		ids[env.ID] = true
	}
}

func TestTimestampSet(t *testing.T) {
	before := time.Now()
	env := envelope.NewCommand("orders", "PlaceOrder", nil).Build()
	after := time.Now()

	if env.Timestamp.Before(before) || env.Timestamp.After(after) {
		t.Errorf("Timestamp = %v, should be between %v and %v", env.Timestamp, before, after)
	}
}

func contains(s, substr string) bool {
	if substr == "" {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
