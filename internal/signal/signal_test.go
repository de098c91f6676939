package signal

import (
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	sig, err := New("policy_violation", ScopeGuardian, SeverityHigh, "threshold exceeded", "pol-7", "ref-1")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if sig.ID == "" {
		t.Error("expected generated signal id")
	}
	if sig.Type != "policy_violation" {
		t.Errorf("Type = %q, want policy_violation", sig.Type)
	}
	if sig.Mode != ModeObservationOnly {
		t.Errorf("Mode = %q, want %q", sig.Mode, ModeObservationOnly)
	}
	if _, err := time.Parse(TimeLayout, sig.EmittedAt); err != nil {
		t.Errorf("EmittedAt %q does not match TimeLayout: %v", sig.EmittedAt, err)
	}
}

func TestNewRejectsEmptyType(t *testing.T) {
	if _, err := New("", ScopeCMS, SeverityInfo, "", "", ""); err == nil {
		t.Fatal("expected error for empty signal type")
	}
}

func TestNewGeneratesUniqueIDs(t *testing.T) {
	a, err := New("drift", ScopeCMS, SeverityLow, "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	b, err := New("drift", ScopeCMS, SeverityLow, "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Errorf("expected distinct ids, both %q", a.ID)
	}
}

func TestSeverityIsValid(t *testing.T) {
	tests := []struct {
		severity Severity
		valid    bool
	}{
		{SeverityInfo, true},
		{SeverityLow, true},
		{SeverityMedium, true},
		{SeverityHigh, true},
		{Severity("critical"), false},
		{Severity(""), false},
	}

	for _, tt := range tests {
		if got := tt.severity.IsValid(); got != tt.valid {
			t.Errorf("Severity(%q).IsValid() = %v, want %v", tt.severity, got, tt.valid)
		}
	}
}

func TestScopeIsValid(t *testing.T) {
	tests := []struct {
		scope Scope
		valid bool
	}{
		{ScopeGuardian, true},
		{ScopeCMS, true},
		{ScopeDirective, true},
		{Scope("kernel"), false},
		{Scope(""), false},
	}

	for _, tt := range tests {
		if got := tt.scope.IsValid(); got != tt.valid {
			t.Errorf("Scope(%q).IsValid() = %v, want %v", tt.scope, got, tt.valid)
		}
	}
}

func TestFixedKeyOrders(t *testing.T) {
	sev := SeverityKeys()
	want := []string{"info", "low", "medium", "high"}
	if len(sev) != len(want) {
		t.Fatalf("SeverityKeys() length = %d, want %d", len(sev), len(want))
	}
	for i, key := range want {
		if sev[i] != key {
			t.Errorf("SeverityKeys()[%d] = %q, want %q", i, sev[i], key)
		}
	}

	scopes := ScopeKeys()
	wantScopes := []string{"guardian", "cms", "directive"}
	for i, key := range wantScopes {
		if scopes[i] != key {
			t.Errorf("ScopeKeys()[%d] = %q, want %q", i, scopes[i], key)
		}
	}
}
