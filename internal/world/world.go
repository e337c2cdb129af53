// Package world builds the admin-facing world map: canon plus every
// signal grouped by stratum and season, with integrity counters.
package world

import (
	"cmp"
	"context"
	"slices"
	"time"

	"luminousdeep/internal/canon"
	"luminousdeep/internal/metrics"
	"luminousdeep/internal/signals"
	"luminousdeep/pkg/models"
)

type Integrity struct {
	Total             int   `json:"total"`
	Myths             int   `json:"myths"`
	Signals           int   `json:"signals"`
	Reflections       int   `json:"reflections"`
	Seasons           int   `json:"seasons"`
	CanonEntries      int   `json:"canon_entries"`
	LockedCanon       int   `json:"locked_canon"`
	LatestPublishedAt int64 `json:"latest_published_at"`
}

type Map struct {
	Canon           []models.CanonEntry     `json:"canon"`
	Myths           []models.Signal         `json:"myths"`
	SignalsBySeason map[int][]models.Signal `json:"signals_by_season"`
	Reflections     []models.Signal         `json:"reflections"`
	Integrity       Integrity               `json:"integrity"`
}

// Build groups with the library's rules generalised to every season.
func Build(entries []models.CanonEntry, all []models.Signal) Map {
	m := Map{
		Canon:           entries,
		Myths:           make([]models.Signal, 0),
		SignalsBySeason: make(map[int][]models.Signal),
		Reflections:     make([]models.Signal, 0),
	}
	if m.Canon == nil {
		m.Canon = make([]models.CanonEntry, 0)
	}

	for _, s := range all {
		s.Content = ""
		switch s.Stratum {
		case models.StratumMyth:
			m.Myths = append(m.Myths, s)
			m.Integrity.Myths++
		case models.StratumReflection:
			m.Reflections = append(m.Reflections, s)
			m.Integrity.Reflections++
		default:
			m.SignalsBySeason[s.Season] = append(m.SignalsBySeason[s.Season], s)
			m.Integrity.Signals++
		}
		if s.PublishedAt > m.Integrity.LatestPublishedAt {
			m.Integrity.LatestPublishedAt = s.PublishedAt
		}
	}

	byRelease := func(a, b models.Signal) int { return cmp.Compare(a.ReleaseDate, b.ReleaseDate) }
	slices.SortStableFunc(m.Myths, byRelease)
	slices.SortStableFunc(m.Reflections, byRelease)
	for season := range m.SignalsBySeason {
		signals.SortEpisodes(m.SignalsBySeason[season])
	}

	m.Integrity.Total = len(all)
	m.Integrity.Seasons = len(m.SignalsBySeason)
	m.Integrity.CanonEntries = len(m.Canon)
	for _, e := range m.Canon {
		if e.IsCanon() {
			m.Integrity.LockedCanon++
		}
	}
	return m
}

type Service struct {
	Canon   *canon.Repo
	Signals *signals.Repo
}

func NewService(canonRepo *canon.Repo, signalRepo *signals.Repo) *Service {
	return &Service{Canon: canonRepo, Signals: signalRepo}
}

func (s *Service) GetWorldMap(ctx context.Context) (*Map, error) {
	defer metrics.ObserveView("world", time.Now())

	entries, err := s.Canon.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.Signals.List(ctx)
	if err != nil {
		return nil, err
	}
	m := Build(entries, all)
	return &m, nil
}
