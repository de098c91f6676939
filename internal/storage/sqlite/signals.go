package sqlite

import (
	"context"
	"fmt"

	"github.com/sigwatch/sigwatch/internal/signal"
)

// AppendSignal stores one immutable signal record. Signals are never updated
// or deleted afterwards.
func (s *SQLiteStore) AppendSignal(ctx context.Context, sig *signal.Signal) error {
	if sig.Type == "" {
		return fmt.Errorf("signal type must not be empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (
			signal_id, signal_type, scope, severity, policy_id,
			message, payload_ref, emitted_at, mode
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sig.ID, sig.Type, sig.Scope, sig.Severity, sig.PolicyID,
		sig.Message, sig.PayloadRef, sig.EmittedAt, sig.Mode,
	)
	if err != nil {
		return fmt.Errorf("failed to insert signal: %w", err)
	}

	return nil
}

// ListSignals returns every signal in append order.
func (s *SQLiteStore) ListSignals(ctx context.Context) ([]*signal.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT signal_id, signal_type, scope, severity, policy_id,
		       message, payload_ref, emitted_at, mode
		FROM signals
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []*signal.Signal
	for rows.Next() {
		var sig signal.Signal
		err := rows.Scan(
			&sig.ID, &sig.Type, &sig.Scope, &sig.Severity, &sig.PolicyID,
			&sig.Message, &sig.PayloadRef, &sig.EmittedAt, &sig.Mode,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		signals = append(signals, &sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate signals: %w", err)
	}

	return signals, nil
}

// CountSignals returns the total number of stored signals.
func (s *SQLiteStore) CountSignals(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM signals`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count signals: %w", err)
	}
	return count, nil
}
