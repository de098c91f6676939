package sqlite

import (
	"context"
	"fmt"

	"github.com/sigwatch/sigwatch/internal/annotation"
)

// AppendAnnotation stores one human note. Callers must validate the record
// first; the store only enforces the shape it can express in the schema.
func (s *SQLiteStore) AppendAnnotation(ctx context.Context, note *annotation.Annotation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO annotations (
			annotation_id, author, reference_type, reference_id, reference_window,
			interpretation_text, confidence, intent, timestamp_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		note.ID, note.Author, note.ReferenceType, note.ReferenceID, note.ReferenceWindow,
		note.InterpretationText, note.Confidence, note.Intent, note.TimestampUTC,
	)
	if err != nil {
		return fmt.Errorf("failed to insert annotation: %w", err)
	}

	return nil
}

// ListAnnotations returns every annotation in append order.
func (s *SQLiteStore) ListAnnotations(ctx context.Context) ([]*annotation.Annotation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT annotation_id, author, reference_type, reference_id, reference_window,
		       interpretation_text, confidence, intent, timestamp_utc
		FROM annotations
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotations: %w", err)
	}
	defer rows.Close()

	var notes []*annotation.Annotation
	for rows.Next() {
		var note annotation.Annotation
		err := rows.Scan(
			&note.ID, &note.Author, &note.ReferenceType, &note.ReferenceID, &note.ReferenceWindow,
			&note.InterpretationText, &note.Confidence, &note.Intent, &note.TimestampUTC,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		notes = append(notes, &note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate annotations: %w", err)
	}

	return notes, nil
}
