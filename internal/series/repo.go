package series

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

// chapterCount counts members with stratum "signal"; NULL and unknown
// strata read as "signal".
const chapterCount = `(
	SELECT COUNT(*) FROM signals sg
	WHERE sg.series_id = s.id
	  AND LOWER(TRIM(COALESCE(sg.stratum, ''))) NOT IN ('myth', 'reflection')
)`

const selectSeries = `
	SELECT s.id, s.slug, s.title, s.description, s.cover_image, s.status, s.updated_at, ` + chapterCount + `
	FROM series s
`

type scanner interface {
	Scan(dest ...any) error
}

func scanSeries(sc scanner) (models.Series, error) {
	var (
		s           models.Series
		description sql.NullString
		coverImage  sql.NullString
		status      string
	)
	if err := sc.Scan(&s.ID, &s.Slug, &s.Title, &description, &coverImage, &status, &s.UpdatedAt, &s.ChapterCount); err != nil {
		return models.Series{}, err
	}
	s.Description = description.String
	s.CoverImage = coverImage.String
	st, err := models.ParseSeriesStatus(status)
	if err != nil {
		st = models.SeriesDraft
	}
	s.Status = st
	return s, nil
}

func (r *Repo) getOne(ctx context.Context, where string, arg any) (*models.Series, error) {
	s, err := scanSeries(r.DB.QueryRowContext(ctx, selectSeries+` WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get series: %w", err)
	}
	return &s, nil
}

// GetBySlug returns the series in any status.
func (r *Repo) GetBySlug(ctx context.Context, slug string) (*models.Series, error) {
	return r.getOne(ctx, `s.slug = ?`, slug)
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Series, error) {
	return r.getOne(ctx, `s.id = ?`, id)
}

func (r *Repo) list(ctx context.Context, where string, args ...any) ([]models.Series, error) {
	q := selectSeries
	if where != "" {
		q += ` WHERE ` + where
	}
	q += ` ORDER BY s.title ASC`

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	out := make([]models.Series, 0)
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows series: %w", err)
	}
	return out, nil
}

func (r *Repo) ListPublished(ctx context.Context) ([]models.Series, error) {
	return r.list(ctx, `s.status = ?`, string(models.SeriesPublished))
}

// ListAll is the studio's view, every status.
func (r *Repo) ListAll(ctx context.Context) ([]models.Series, error) {
	return r.list(ctx, "")
}

func (r *Repo) Create(ctx context.Context, s models.Series) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO series (id, slug, title, description, cover_image, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Slug, s.Title, s.Description, s.CoverImage, string(s.Status), s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create series: %w", err)
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, s models.Series) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE series SET slug = ?, title = ?, description = ?, cover_image = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, s.Slug, s.Title, s.Description, s.CoverImage, string(s.Status), s.UpdatedAt, s.ID)
	if err != nil {
		return false, fmt.Errorf("update series: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
