package models

import (
	"errors"
	"strings"
)

// Stratum is the narrative layer a signal belongs to.
type Stratum string

const (
	StratumMyth       Stratum = "myth"
	StratumSignal     Stratum = "signal"
	StratumReflection Stratum = "reflection"
)

var ErrInvalidStratum = errors.New("stratum must be one of: myth, signal, reflection")

// NormalizeStratum maps a stored value to a Stratum. Legacy rows carry no
// stratum at all; they, and anything unrecognised, are treated as "signal".
func NormalizeStratum(s string) Stratum {
	if st, err := ParseStratum(s); err == nil {
		return st
	}
	return StratumSignal
}

// ParseStratum is the strict form used for studio input. Empty input is
// accepted and defaults to "signal".
func ParseStratum(s string) (Stratum, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "signal":
		return StratumSignal, nil
	case "myth":
		return StratumMyth, nil
	case "reflection":
		return StratumReflection, nil
	default:
		return "", ErrInvalidStratum
	}
}

// Signal is one narrative unit (an episode or entry).
//
// ReleaseDate and PublishedAt are unix milliseconds; zero means absent.
type Signal struct {
	ID           string  `json:"id"`
	Slug         string  `json:"slug"`
	Season       int     `json:"season"`
	Episode      int     `json:"episode"`
	Stratum      Stratum `json:"stratum"`
	Title        string  `json:"title"`
	Content      string  `json:"content,omitempty"`
	CoverImage   string  `json:"cover_image,omitempty"`
	SummaryShort string  `json:"summary_short,omitempty"`
	SummaryLong  string  `json:"summary_long,omitempty"`
	AmbientAudio string  `json:"ambient_audio,omitempty"`
	IsLocked     bool    `json:"is_locked"`
	GlitchPoint  *int    `json:"glitch_point,omitempty"`
	SeriesID     *string `json:"series_id,omitempty"`
	ReleaseDate  int64   `json:"release_date"`
	PublishedAt  int64   `json:"published_at,omitempty"`
	UpdatedAt    int64   `json:"updated_at"`
}

// InSeries reports whether the signal is grouped under a series.
func (s Signal) InSeries() bool {
	return s.SeriesID != nil && *s.SeriesID != ""
}

// EnrichedSignal is a signal joined with the requesting reader's progress.
// Progress is nil for anonymous readers and for signals never opened.
type EnrichedSignal struct {
	Signal
	Progress *UserProgress `json:"progress"`
}
