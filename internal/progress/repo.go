package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"luminousdeep/pkg/models"
)

const (
	OutcomeInserted = "inserted"
	OutcomeUpdated  = "updated"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type storedProgress struct {
	id int64
	models.UserProgress
}

func getRow(ctx context.Context, q queryRower, userID, signalID string) (*storedProgress, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, user_id, signal_id, progress, is_completed, last_read_at
		FROM user_progress
		WHERE user_id = ? AND signal_id = ?
		ORDER BY id ASC
		LIMIT 1
	`, userID, signalID)

	var p storedProgress
	if err := row.Scan(&p.id, &p.UserID, &p.SignalID, &p.Progress, &p.IsCompleted, &p.LastReadAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	p.Progress = models.ClampProgress(p.Progress)
	return &p, nil
}

// Get returns the reader's record for one signal, or nil.
func (r *Repo) Get(ctx context.Context, userID, signalID string) (*models.UserProgress, error) {
	p, err := getRow(ctx, r.DB, userID, signalID)
	if err != nil || p == nil {
		return nil, err
	}
	return &p.UserProgress, nil
}

// ListByUser loads every record of one reader in a single query, keyed by
// signal id.
func (r *Repo) ListByUser(ctx context.Context, userID string) (map[string]models.UserProgress, error) {
	out := make(map[string]models.UserProgress)
	if userID == "" {
		return out, nil
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_id, signal_id, progress, is_completed, last_read_at
		FROM user_progress
		WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.UserProgress
		if err := rows.Scan(&p.UserID, &p.SignalID, &p.Progress, &p.IsCompleted, &p.LastReadAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		p.Progress = models.ClampProgress(p.Progress)
		if prev, ok := out[p.SignalID]; ok && prev.LastReadAt > p.LastReadAt {
			continue
		}
		out[p.SignalID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows progress: %w", err)
	}
	return out, nil
}

// ListAll is used by the CSV export.
func (r *Repo) ListAll(ctx context.Context) ([]models.UserProgress, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_id, signal_id, progress, is_completed, last_read_at
		FROM user_progress
		ORDER BY last_read_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list all progress: %w", err)
	}
	defer rows.Close()

	var out []models.UserProgress
	for rows.Next() {
		var p models.UserProgress
		if err := rows.Scan(&p.UserID, &p.SignalID, &p.Progress, &p.IsCompleted, &p.LastReadAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows progress: %w", err)
	}
	return out, nil
}

// Save applies MergeProgress against the stored record inside one write
// transaction: lookup, then insert or patch. It returns the stored result
// and whether a row was inserted or updated.
func (r *Repo) Save(ctx context.Context, incoming models.UserProgress) (models.UserProgress, string, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.UserProgress{}, "", fmt.Errorf("begin save progress: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := getRow(ctx, tx, incoming.UserID, incoming.SignalID)
	if err != nil {
		return models.UserProgress{}, "", err
	}

	var (
		merged  models.UserProgress
		outcome string
	)
	if existing == nil {
		merged = MergeProgress(nil, incoming)
		outcome = OutcomeInserted
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_progress (user_id, signal_id, progress, is_completed, last_read_at)
			VALUES (?, ?, ?, ?, ?)
		`, merged.UserID, merged.SignalID, merged.Progress, merged.IsCompleted, merged.LastReadAt); err != nil {
			return models.UserProgress{}, "", fmt.Errorf("insert progress: %w", err)
		}
	} else {
		merged = MergeProgress(&existing.UserProgress, incoming)
		outcome = OutcomeUpdated
		// MAX keeps is_completed monotonic in SQL as well.
		if _, err := tx.ExecContext(ctx, `
			UPDATE user_progress
			SET progress = ?, last_read_at = ?, is_completed = MAX(is_completed, ?)
			WHERE id = ?
		`, merged.Progress, merged.LastReadAt, merged.IsCompleted, existing.id); err != nil {
			return models.UserProgress{}, "", fmt.Errorf("update progress: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.UserProgress{}, "", fmt.Errorf("commit save progress: %w", err)
	}
	return merged, outcome, nil
}

// MarkCompleted sets is_completed on the pair, creating the record at 100%
// when the reader has none yet. Repeated calls leave the row unchanged.
func (r *Repo) MarkCompleted(ctx context.Context, userID, signalID string, at int64) (models.UserProgress, string, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.UserProgress{}, "", fmt.Errorf("begin complete progress: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := getRow(ctx, tx, userID, signalID)
	if err != nil {
		return models.UserProgress{}, "", err
	}

	var (
		out     models.UserProgress
		outcome string
	)
	if existing == nil {
		out = models.UserProgress{UserID: userID, SignalID: signalID, Progress: 100, IsCompleted: true, LastReadAt: at}
		outcome = OutcomeInserted
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_progress (user_id, signal_id, progress, is_completed, last_read_at)
			VALUES (?, ?, ?, 1, ?)
		`, userID, signalID, out.Progress, at); err != nil {
			return models.UserProgress{}, "", fmt.Errorf("insert completed progress: %w", err)
		}
	} else {
		out = existing.UserProgress
		out.IsCompleted = true
		outcome = OutcomeUpdated
		if _, err := tx.ExecContext(ctx, `
			UPDATE user_progress SET is_completed = 1 WHERE id = ?
		`, existing.id); err != nil {
			return models.UserProgress{}, "", fmt.Errorf("complete progress: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.UserProgress{}, "", fmt.Errorf("commit complete progress: %w", err)
	}
	return out, outcome, nil
}

// CountRows reports how many records exist for a pair; the tracker keeps
// it at most one.
func (r *Repo) CountRows(ctx context.Context, userID, signalID string) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_progress WHERE user_id = ? AND signal_id = ?
	`, userID, signalID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count progress: %w", err)
	}
	return n, nil
}
