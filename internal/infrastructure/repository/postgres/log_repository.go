package postgres

import (
	"context"
	"fmt"

	"github.com/lendware/docflow/internal/core/domain"
)

type ProcessingLogRepository struct {
	db *DB
}

func NewProcessingLogRepository(db *DB) *ProcessingLogRepository {
	return &ProcessingLogRepository{db: db}
}

func (r *ProcessingLogRepository) Append(ctx context.Context, entry *domain.ProcessingLogEntry) error {
	_, err := r.db.q(ctx).ExecContext(ctx, `
INSERT INTO processing_log (id, entry_id, status, message, timestamp)
VALUES ($1,$2,$3,$4,$5)
`, entry.ID, entry.EntryID, string(entry.Status), entry.Message, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("append processing log: %w", err)
	}
	return nil
}

func (r *ProcessingLogRepository) ListByEntry(ctx context.Context, entryID string) ([]domain.ProcessingLogEntry, error) {
	rows, err := r.db.q(ctx).QueryContext(ctx, `
SELECT id, entry_id, status, message, timestamp
FROM processing_log
WHERE entry_id = $1
ORDER BY timestamp
`, entryID)
	if err != nil {
		return nil, fmt.Errorf("list processing log: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ProcessingLogEntry, 0)
	for rows.Next() {
		var entry domain.ProcessingLogEntry
		var status string
		if err := rows.Scan(&entry.ID, &entry.EntryID, &status, &entry.Message, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan processing log: %w", err)
		}
		entry.Status = domain.LogStatus(status)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processing log: %w", err)
	}
	return out, nil
}
