package signals

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

const (
	columnsWithBody = `id, slug, season, episode, stratum, title, content, cover_image,
		summary_short, summary_long, ambient_audio, is_locked, glitch_point, series_id,
		release_date, published_at, updated_at`

	// list views never carry bodies
	columnsNoBody = `id, slug, season, episode, stratum, title, '' AS content, cover_image,
		summary_short, summary_long, ambient_audio, is_locked, glitch_point, series_id,
		release_date, published_at, updated_at`

	listOrder = ` ORDER BY season ASC, episode ASC, slug ASC`
)

type scanner interface {
	Scan(dest ...any) error
}

// scanSignal applies the legacy defaults once: a missing stratum reads as
// "signal", a missing release date as 0.
func scanSignal(s scanner) (models.Signal, error) {
	var (
		sig          models.Signal
		stratum      sql.NullString
		coverImage   sql.NullString
		summaryShort sql.NullString
		summaryLong  sql.NullString
		ambient      sql.NullString
		glitchPoint  sql.NullInt64
		seriesID     sql.NullString
		releaseDate  sql.NullInt64
		publishedAt  sql.NullInt64
	)
	if err := s.Scan(
		&sig.ID, &sig.Slug, &sig.Season, &sig.Episode, &stratum, &sig.Title, &sig.Content, &coverImage,
		&summaryShort, &summaryLong, &ambient, &sig.IsLocked, &glitchPoint, &seriesID,
		&releaseDate, &publishedAt, &sig.UpdatedAt,
	); err != nil {
		return models.Signal{}, err
	}

	sig.Stratum = models.NormalizeStratum(stratum.String)
	sig.CoverImage = coverImage.String
	sig.SummaryShort = summaryShort.String
	sig.SummaryLong = summaryLong.String
	sig.AmbientAudio = ambient.String
	if glitchPoint.Valid {
		gp := int(glitchPoint.Int64)
		sig.GlitchPoint = &gp
	}
	if seriesID.Valid && seriesID.String != "" {
		id := seriesID.String
		sig.SeriesID = &id
	}
	sig.ReleaseDate = releaseDate.Int64
	sig.PublishedAt = publishedAt.Int64
	return sig, nil
}

func (r *Repo) getOne(ctx context.Context, where string, arg any) (*models.Signal, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+columnsWithBody+` FROM signals WHERE `+where, arg)
	sig, err := scanSignal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get signal: %w", err)
	}
	return &sig, nil
}

func (r *Repo) GetBySlug(ctx context.Context, slug string) (*models.Signal, error) {
	return r.getOne(ctx, `slug = ?`, slug)
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Signal, error) {
	return r.getOne(ctx, `id = ?`, id)
}

func (r *Repo) query(ctx context.Context, sqlStr string, args ...any) ([]models.Signal, error) {
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	out := make([]models.Signal, 0)
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows signals: %w", err)
	}
	return out, nil
}

// List returns every signal without its body.
func (r *Repo) List(ctx context.Context) ([]models.Signal, error) {
	return r.query(ctx, `SELECT `+columnsNoBody+` FROM signals`+listOrder)
}

// ListWithContent is List including bodies; used by the CSV export.
func (r *Repo) ListWithContent(ctx context.Context) ([]models.Signal, error) {
	return r.query(ctx, `SELECT `+columnsWithBody+` FROM signals`+listOrder)
}

// ListBySeries returns every member of a series, all strata, without
// bodies. Callers filter and order.
func (r *Repo) ListBySeries(ctx context.Context, seriesID string) ([]models.Signal, error) {
	return r.query(ctx, `SELECT `+columnsNoBody+` FROM signals WHERE series_id = ?`+listOrder, seriesID)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}

func args(sig models.Signal) []any {
	var glitch sql.NullInt64
	if sig.GlitchPoint != nil {
		glitch = sql.NullInt64{Int64: int64(*sig.GlitchPoint), Valid: true}
	}
	var series sql.NullString
	if sig.SeriesID != nil {
		series = nullString(*sig.SeriesID)
	}
	return []any{
		sig.Slug, sig.Season, sig.Episode, string(models.NormalizeStratum(string(sig.Stratum))), sig.Title,
		sig.Content, nullString(sig.CoverImage), nullString(sig.SummaryShort), nullString(sig.SummaryLong),
		nullString(sig.AmbientAudio), sig.IsLocked, glitch, series,
		nullInt(sig.ReleaseDate), nullInt(sig.PublishedAt), sig.UpdatedAt,
	}
}

func (r *Repo) Create(ctx context.Context, sig models.Signal) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO signals (slug, season, episode, stratum, title, content, cover_image,
			summary_short, summary_long, ambient_audio, is_locked, glitch_point, series_id,
			release_date, published_at, updated_at, id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, append(args(sig), sig.ID)...)
	if err != nil {
		return fmt.Errorf("create signal: %w", err)
	}
	return nil
}

// Update is a full-field patch keyed by id.
func (r *Repo) Update(ctx context.Context, sig models.Signal) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE signals SET
			slug = ?, season = ?, episode = ?, stratum = ?, title = ?, content = ?, cover_image = ?,
			summary_short = ?, summary_long = ?, ambient_audio = ?, is_locked = ?, glitch_point = ?,
			series_id = ?, release_date = ?, published_at = ?, updated_at = ?
		WHERE id = ?
	`, append(args(sig), sig.ID)...)
	if err != nil {
		return false, fmt.Errorf("update signal: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM signals WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete signal: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// EpisodeTaken reports whether another "signal"-stratum member of the
// series already holds (season, episode). excludeID skips the row being
// edited.
func (r *Repo) EpisodeTaken(ctx context.Context, seriesID string, season, episode int, excludeID string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM signals
		WHERE series_id = ? AND season = ? AND episode = ? AND id <> ?
		  AND LOWER(TRIM(COALESCE(stratum, ''))) NOT IN ('myth', 'reflection')
	`, seriesID, season, episode, excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check episode: %w", err)
	}
	return n > 0, nil
}
