package library

import (
	"cmp"
	"slices"

	"luminousdeep/pkg/models"
)

// State is the reader's library: loose content by stratum plus the one
// signal to resume.
type State struct {
	ContinueReading *models.EnrichedSignal  `json:"continue_reading"`
	Myths           []models.EnrichedSignal `json:"myths"`
	SeasonZero      []models.EnrichedSignal `json:"season_zero"`
	Reflections     []models.EnrichedSignal `json:"reflections"`
}

// Partition buckets enriched signals by stratum. Myths and reflections
// are ordered by release date (missing = 0), Season Zero by episode.
// "signal"-stratum content outside season 0 belongs to a series and lands
// in no bucket.
func Partition(all []models.EnrichedSignal) State {
	st := State{
		Myths:       make([]models.EnrichedSignal, 0),
		SeasonZero:  make([]models.EnrichedSignal, 0),
		Reflections: make([]models.EnrichedSignal, 0),
	}
	for _, s := range all {
		switch s.Stratum {
		case models.StratumMyth:
			st.Myths = append(st.Myths, s)
		case models.StratumReflection:
			st.Reflections = append(st.Reflections, s)
		default:
			if s.Season == 0 {
				st.SeasonZero = append(st.SeasonZero, s)
			}
		}
	}

	byRelease := func(a, b models.EnrichedSignal) int { return cmp.Compare(a.ReleaseDate, b.ReleaseDate) }
	slices.SortStableFunc(st.Myths, byRelease)
	slices.SortStableFunc(st.Reflections, byRelease)
	slices.SortStableFunc(st.SeasonZero, func(a, b models.EnrichedSignal) int {
		return cmp.Compare(a.Episode, b.Episode)
	})

	st.ContinueReading = ContinueReading(all)
	return st
}

// ContinueReading picks the most recently touched signal that has progress
// and is not completed. Ties keep the first in input order. Nil when
// nothing is in progress.
func ContinueReading(all []models.EnrichedSignal) *models.EnrichedSignal {
	var best *models.EnrichedSignal
	for i := range all {
		p := all[i].Progress
		if p == nil || p.IsCompleted {
			continue
		}
		if best == nil || p.LastReadAt > best.Progress.LastReadAt {
			best = &all[i]
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}
