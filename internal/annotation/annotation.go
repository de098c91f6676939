// Package annotation implements the append-only human note store. Annotations
// reference a derived artifact by id or by time window and carry interpretive
// context; they never alter the facts they point at.
package annotation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sigwatch/sigwatch/internal/signal"
)

// ReferenceType identifies which artifact kind an annotation points at.
type ReferenceType string

const (
	// ReferenceIndex points at an index snapshot
	ReferenceIndex ReferenceType = "index"
	// ReferenceDelta points at a delta record
	ReferenceDelta ReferenceType = "delta"
	// ReferenceTrend points at a trend snapshot
	ReferenceTrend ReferenceType = "trend"
	// ReferenceAnomaly points at an anomaly finding
	ReferenceAnomaly ReferenceType = "anomaly"
)

// Confidence expresses how strongly the author stands behind the note.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Intent classifies why the note was written.
type Intent string

const (
	IntentExplanation    Intent = "explanation"
	IntentHypothesis     Intent = "hypothesis"
	IntentHistoricalNote Intent = "historical_note"
	IntentCaution        Intent = "caution"
	IntentClarification  Intent = "clarification"
)

// IntentKeys returns the fixed intent label order used by metric exports.
func IntentKeys() []string {
	return []string{"explanation", "hypothesis", "historical_note", "caution", "clarification"}
}

// ConfidenceKeys returns the fixed confidence label order used by metric exports.
func ConfidenceKeys() []string {
	return []string{"low", "medium", "high"}
}

// Annotation is one append-only human note. Exactly one of ReferenceID and
// ReferenceWindow must be set.
type Annotation struct {
	// ID is the unique identifier for this annotation
	ID string `json:"annotation_id"`
	// Author is who wrote the note
	Author string `json:"author" validate:"required"`
	// ReferenceType is the artifact kind being annotated
	ReferenceType ReferenceType `json:"reference_type" validate:"required,oneof=index delta trend anomaly"`
	// ReferenceID points at a specific artifact record
	ReferenceID string `json:"reference_id,omitempty" validate:"required_without=ReferenceWindow,excluded_with=ReferenceWindow"`
	// ReferenceWindow points at a time window instead of a record
	ReferenceWindow string `json:"reference_window,omitempty" validate:"required_without=ReferenceID,excluded_with=ReferenceID"`
	// InterpretationText is the note body
	InterpretationText string `json:"interpretation_text" validate:"required"`
	// Confidence is how strongly the author stands behind the note
	Confidence Confidence `json:"confidence" validate:"required,oneof=low medium high"`
	// Intent is why the note was written
	Intent Intent `json:"intent" validate:"required,oneof=explanation hypothesis historical_note caution clarification"`
	// TimestampUTC is when the note was recorded, defaulting to now
	TimestampUTC string `json:"timestamp_utc"`
}

var validate = validator.New()

// New builds an annotation with a generated id. An empty timestamp defaults to
// the current UTC time. The result is not yet validated; call Validate before
// appending it to the store.
func New(author string, refType ReferenceType, refID, refWindow, text string, confidence Confidence, intent Intent, timestamp string) *Annotation {
	if timestamp == "" {
		timestamp = signal.Now()
	}
	return &Annotation{
		ID:                 uuid.New().String(),
		Author:             author,
		ReferenceType:      refType,
		ReferenceID:        refID,
		ReferenceWindow:    refWindow,
		InterpretationText: text,
		Confidence:         confidence,
		Intent:             intent,
		TimestampUTC:       timestamp,
	}
}

// Validate checks the annotation against its contract and returns one
// human-readable problem per violation. An empty slice means the annotation
// may be appended. Validation failures must reject the record before any
// write reaches the store.
func (a *Annotation) Validate() []string {
	err := validate.Struct(a)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	var problems []string
	referenceReported := false
	for _, fe := range verrs {
		switch fe.StructField() {
		case "Author":
			problems = append(problems, "author must not be empty")
		case "ReferenceType":
			problems = append(problems, fmt.Sprintf("invalid reference type %q (expected index, delta, trend, or anomaly)", a.ReferenceType))
		case "ReferenceID", "ReferenceWindow":
			// Both fields fail together; report the pairing rule once.
			if !referenceReported {
				problems = append(problems, "exactly one of reference id or reference window must be provided")
				referenceReported = true
			}
		case "InterpretationText":
			problems = append(problems, "interpretation text must not be empty")
		case "Confidence":
			problems = append(problems, fmt.Sprintf("invalid confidence %q (expected low, medium, or high)", a.Confidence))
		case "Intent":
			problems = append(problems, fmt.Sprintf("invalid intent %q (expected explanation, hypothesis, historical_note, caution, or clarification)", a.Intent))
		default:
			problems = append(problems, fe.Error())
		}
	}
	return problems
}
