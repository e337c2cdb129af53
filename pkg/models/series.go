package models

import (
	"errors"
	"strings"
)

type SeriesStatus string

const (
	SeriesDraft     SeriesStatus = "Draft"
	SeriesReview    SeriesStatus = "Review"
	SeriesPublished SeriesStatus = "Published"
)

var ErrInvalidSeriesStatus = errors.New("status must be one of: Draft, Review, Published")

func ParseSeriesStatus(s string) (SeriesStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "draft":
		return SeriesDraft, nil
	case "review":
		return SeriesReview, nil
	case "published":
		return SeriesPublished, nil
	default:
		return "", ErrInvalidSeriesStatus
	}
}

type Series struct {
	ID          string       `json:"id"`
	Slug        string       `json:"slug"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	CoverImage  string       `json:"cover_image,omitempty"`
	Status      SeriesStatus `json:"status"`

	// ChapterCount counts member signals with stratum "signal" only.
	// Not persisted.
	ChapterCount int `json:"chapter_count"`

	UpdatedAt int64 `json:"updated_at"`
}
