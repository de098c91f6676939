package signal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Severity represents the severity level of a signal.
type Severity string

const (
	// SeverityInfo indicates informational signals
	SeverityInfo Severity = "info"
	// SeverityLow indicates low-impact signals
	SeverityLow Severity = "low"
	// SeverityMedium indicates signals worth attention
	SeverityMedium Severity = "medium"
	// SeverityHigh indicates signals likely to need follow-up
	SeverityHigh Severity = "high"
)

// IsValid returns true if the severity is one of the fixed vocabulary values.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Scope represents the subsystem a signal was observed in.
type Scope string

const (
	// ScopeGuardian indicates signals from the guardian subsystem
	ScopeGuardian Scope = "guardian"
	// ScopeCMS indicates signals from the content management subsystem
	ScopeCMS Scope = "cms"
	// ScopeDirective indicates signals from the directive subsystem
	ScopeDirective Scope = "directive"
)

// IsValid returns true if the scope is one of the fixed vocabulary values.
func (s Scope) IsValid() bool {
	switch s {
	case ScopeGuardian, ScopeCMS, ScopeDirective:
		return true
	}
	return false
}

// ModeObservationOnly marks every signal as observational. The pipeline never
// enforces or mutates anything based on what it records.
const ModeObservationOnly = "observation_only"

// TimeLayout is the timestamp format used across all artifacts: UTC, second
// precision, literal Z suffix. Lexicographic order equals chronological order.
const TimeLayout = "2006-01-02T15:04:05Z"

// Now returns the current UTC time formatted with TimeLayout.
func Now() string {
	return time.Now().UTC().Format(TimeLayout)
}

// SeverityKeys returns the fixed severity key order used by deltas, trends,
// and metric labels.
func SeverityKeys() []string {
	return []string{"info", "low", "medium", "high"}
}

// ScopeKeys returns the fixed scope key order used by deltas, trends, and
// metric labels.
func ScopeKeys() []string {
	return []string{"guardian", "cms", "directive"}
}

// Signal is one immutable observational event. Signals are created by external
// instrumentation through the emit command and never modified afterwards.
type Signal struct {
	// ID is the unique identifier for this signal
	ID string `json:"signal_id"`
	// Type is the caller-defined signal type, the only required field
	Type string `json:"signal_type"`
	// Scope is the subsystem the signal was observed in
	Scope Scope `json:"scope"`
	// Severity is the severity level of this signal
	Severity Severity `json:"severity"`
	// PolicyID optionally attributes the signal to a policy
	PolicyID string `json:"policy_id,omitempty"`
	// Message is a short human-readable description
	Message string `json:"message,omitempty"`
	// PayloadRef optionally points at an external payload record
	PayloadRef string `json:"payload_ref,omitempty"`
	// EmittedAt is when the signal was recorded, in TimeLayout format
	EmittedAt string `json:"emitted_at"`
	// Mode is always ModeObservationOnly
	Mode string `json:"mode"`
}

// New creates a signal with a generated id and the current timestamp.
// Callers are trusted instrumentation: the only requirement is a non-empty type.
func New(signalType string, scope Scope, severity Severity, message, policyID, payloadRef string) (*Signal, error) {
	if signalType == "" {
		return nil, fmt.Errorf("signal type must not be empty")
	}
	return &Signal{
		ID:         uuid.New().String(),
		Type:       signalType,
		Scope:      scope,
		Severity:   severity,
		PolicyID:   policyID,
		Message:    message,
		PayloadRef: payloadRef,
		EmittedAt:  Now(),
		Mode:       ModeObservationOnly,
	}, nil
}
