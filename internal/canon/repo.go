package canon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"luminousdeep/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const selectCanon = `SELECT id, title, content, version, locked_at, updated_at FROM canon_entries`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (models.CanonEntry, error) {
	var (
		e        models.CanonEntry
		lockedAt sql.NullInt64
	)
	if err := s.Scan(&e.ID, &e.Title, &e.Content, &e.Version, &lockedAt, &e.UpdatedAt); err != nil {
		return models.CanonEntry{}, err
	}
	if lockedAt.Valid {
		at := lockedAt.Int64
		e.LockedAt = &at
	}
	return e, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*models.CanonEntry, error) {
	e, err := scanEntry(r.DB.QueryRowContext(ctx, selectCanon+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get canon: %w", err)
	}
	return &e, nil
}

func (r *Repo) list(ctx context.Context, q string) ([]models.CanonEntry, error) {
	rows, err := r.DB.QueryContext(ctx, q+` ORDER BY title ASC`)
	if err != nil {
		return nil, fmt.Errorf("list canon: %w", err)
	}
	defer rows.Close()

	out := make([]models.CanonEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan canon: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows canon: %w", err)
	}
	return out, nil
}

// ListAll includes drafts; used by the world map and the studio.
func (r *Repo) ListAll(ctx context.Context) ([]models.CanonEntry, error) {
	return r.list(ctx, selectCanon)
}

// ListLocked returns canon proper: entries with locked_at set.
func (r *Repo) ListLocked(ctx context.Context) ([]models.CanonEntry, error) {
	return r.list(ctx, selectCanon+` WHERE locked_at IS NOT NULL`)
}

func (r *Repo) Create(ctx context.Context, e models.CanonEntry) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO canon_entries (id, title, content, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
	`, e.ID, e.Title, e.Content, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create canon: %w", err)
	}
	return nil
}

// Update overwrites title and content and bumps the version. Prior
// content is not kept.
func (r *Repo) Update(ctx context.Context, id, title, content string, at int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE canon_entries
		SET title = ?, content = ?, version = version + 1, updated_at = ?
		WHERE id = ?
	`, title, content, at, id)
	if err != nil {
		return false, fmt.Errorf("update canon: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Lock marks the entry as canon. Locking twice keeps the first time.
func (r *Repo) Lock(ctx context.Context, id string, at int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE canon_entries SET locked_at = COALESCE(locked_at, ?) WHERE id = ?
	`, at, id)
	if err != nil {
		return false, fmt.Errorf("lock canon: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
