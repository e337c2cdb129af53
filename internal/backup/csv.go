// Package backup moves signals and reading progress in and out of CSV.
package backup

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"luminousdeep/internal/progress"
	"luminousdeep/internal/signals"
	"luminousdeep/pkg/models"
)

var SignalHeader = []string{
	"id", "slug", "season", "episode", "stratum", "title", "content",
	"cover_image", "summary_short", "summary_long", "ambient_audio",
	"is_locked", "glitch_point", "series_id", "release_date", "published_at", "updated_at",
}

var ProgressHeader = []string{"user_id", "signal_id", "progress", "is_completed", "last_read_at"}

// Stats counts what an import did.
type Stats struct {
	Inserted int
	Updated  int
}

func WriteSignals(w io.Writer, list []models.Signal) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SignalHeader); err != nil {
		return err
	}
	for _, s := range list {
		glitch := ""
		if s.GlitchPoint != nil {
			glitch = strconv.Itoa(*s.GlitchPoint)
		}
		series := ""
		if s.SeriesID != nil {
			series = *s.SeriesID
		}
		if err := cw.Write([]string{
			s.ID,
			s.Slug,
			strconv.Itoa(s.Season),
			strconv.Itoa(s.Episode),
			string(s.Stratum),
			s.Title,
			s.Content,
			s.CoverImage,
			s.SummaryShort,
			s.SummaryLong,
			s.AmbientAudio,
			strconv.FormatBool(s.IsLocked),
			glitch,
			series,
			formatMillis(s.ReleaseDate),
			formatMillis(s.PublishedAt),
			formatMillis(s.UpdatedAt),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteProgress(w io.Writer, list []models.UserProgress) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ProgressHeader); err != nil {
		return err
	}
	for _, p := range list {
		if err := cw.Write([]string{
			p.UserID,
			p.SignalID,
			strconv.FormatFloat(p.Progress, 'f', -1, 64),
			strconv.FormatBool(p.IsCompleted),
			formatMillis(p.LastReadAt),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSignals parses a signals export. Rows without an id, slug or title
// are dropped; columns are matched by header name so extra or reordered
// columns are tolerated.
func ReadSignals(r io.Reader) ([]models.Signal, error) {
	var out []models.Signal
	err := eachRow(r, func(line int, row record) error {
		id, slug, title := row.get("id"), row.get("slug"), row.get("title")
		if id == "" || slug == "" || title == "" {
			return nil
		}
		sig := models.Signal{
			ID:           id,
			Slug:         slug,
			Stratum:      models.NormalizeStratum(row.get("stratum")),
			Title:        title,
			Content:      row.get("content"),
			CoverImage:   row.get("cover_image"),
			SummaryShort: row.get("summary_short"),
			SummaryLong:  row.get("summary_long"),
			AmbientAudio: row.get("ambient_audio"),
		}
		var err error
		if sig.Season, err = parseInt(row.get("season")); err != nil {
			return fmt.Errorf("line %d: season: %w", line, err)
		}
		if sig.Episode, err = parseInt(row.get("episode")); err != nil {
			return fmt.Errorf("line %d: episode: %w", line, err)
		}
		if sig.IsLocked, err = parseBool(row.get("is_locked")); err != nil {
			return fmt.Errorf("line %d: is_locked: %w", line, err)
		}
		if v := row.get("glitch_point"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("line %d: glitch_point: %w", line, err)
			}
			sig.GlitchPoint = &n
		}
		if v := row.get("series_id"); v != "" {
			sig.SeriesID = &v
		}
		if sig.ReleaseDate, err = parseMillis(row.get("release_date")); err != nil {
			return fmt.Errorf("line %d: release_date: %w", line, err)
		}
		if sig.PublishedAt, err = parseMillis(row.get("published_at")); err != nil {
			return fmt.Errorf("line %d: published_at: %w", line, err)
		}
		if sig.UpdatedAt, err = parseMillis(row.get("updated_at")); err != nil {
			return fmt.Errorf("line %d: updated_at: %w", line, err)
		}
		out = append(out, sig)
		return nil
	})
	return out, err
}

// ReadProgress parses a progress export. Rows without a user or signal id
// are dropped.
func ReadProgress(r io.Reader) ([]models.UserProgress, error) {
	var out []models.UserProgress
	err := eachRow(r, func(line int, row record) error {
		p := models.UserProgress{UserID: row.get("user_id"), SignalID: row.get("signal_id")}
		if p.UserID == "" || p.SignalID == "" {
			return nil
		}
		var err error
		if v := row.get("progress"); v != "" {
			if p.Progress, err = strconv.ParseFloat(v, 64); err != nil {
				return fmt.Errorf("line %d: progress: %w", line, err)
			}
		}
		if p.IsCompleted, err = parseBool(row.get("is_completed")); err != nil {
			return fmt.Errorf("line %d: is_completed: %w", line, err)
		}
		if p.LastReadAt, err = parseMillis(row.get("last_read_at")); err != nil {
			return fmt.Errorf("line %d: last_read_at: %w", line, err)
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

// ImportSignals upserts by id.
func ImportSignals(ctx context.Context, repo *signals.Repo, list []models.Signal) (Stats, error) {
	var st Stats
	for _, sig := range list {
		ok, err := repo.Update(ctx, sig)
		if err != nil {
			return st, fmt.Errorf("import signal %s: %w", sig.Slug, err)
		}
		if ok {
			st.Updated++
			continue
		}
		if err := repo.Create(ctx, sig); err != nil {
			return st, fmt.Errorf("import signal %s: %w", sig.Slug, err)
		}
		st.Inserted++
	}
	return st, nil
}

// ImportProgress goes through the same merge as a live write, so loading
// an older export never un-completes a signal or duplicates a row.
func ImportProgress(ctx context.Context, repo *progress.Repo, list []models.UserProgress) (Stats, error) {
	var st Stats
	for _, p := range list {
		_, outcome, err := repo.Save(ctx, p)
		if err != nil {
			return st, fmt.Errorf("import progress %s/%s: %w", p.UserID, p.SignalID, err)
		}
		if outcome == progress.OutcomeInserted {
			st.Inserted++
		} else {
			st.Updated++
		}
	}
	return st, nil
}

type record struct {
	header map[string]int
	row    []string
}

func (r record) get(name string) string {
	i, ok := r.header[name]
	if !ok || i >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[i])
}

func eachRow(r io.Reader, fn func(line int, row record) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(first))
	for i, h := range first {
		header[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) == 0 {
			continue
		}
		if err := fn(line, record{header: header, row: row}); err != nil {
			return err
		}
	}
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return strconv.FormatInt(ms, 10)
}

func parseMillis(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "":
		return false, nil
	case "1", "yes":
		return true, nil
	case "0", "no":
		return false, nil
	}
	return strconv.ParseBool(s)
}
