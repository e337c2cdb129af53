package gate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Entitlement marks a reader as paid. Rows come from the payment flow or
// from an admin grant.
type Entitlement struct {
	UserID    string `json:"user_id"`
	Source    string `json:"source"`
	GrantedAt int64  `json:"granted_at"`
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) HasAccess(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM entitlements WHERE user_id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check entitlement: %w", err)
	}
	return true, nil
}

// Grant is idempotent; a repeated grant refreshes source and time.
func (r *Repo) Grant(ctx context.Context, e Entitlement) error {
	if e.Source == "" {
		e.Source = "manual"
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO entitlements (user_id, source, granted_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			source = excluded.source,
			granted_at = excluded.granted_at
	`, e.UserID, e.Source, e.GrantedAt)
	if err != nil {
		return fmt.Errorf("grant entitlement: %w", err)
	}
	return nil
}

func (r *Repo) Revoke(ctx context.Context, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM entitlements WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("revoke entitlement: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) List(ctx context.Context) ([]Entitlement, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_id, source, granted_at FROM entitlements ORDER BY granted_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list entitlements: %w", err)
	}
	defer rows.Close()

	out := make([]Entitlement, 0)
	for rows.Next() {
		var e Entitlement
		if err := rows.Scan(&e.UserID, &e.Source, &e.GrantedAt); err != nil {
			return nil, fmt.Errorf("scan entitlement: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows entitlements: %w", err)
	}
	return out, nil
}
