package signals

import (
	"cmp"
	"slices"

	"luminousdeep/pkg/models"
)

// Chapters keeps the "signal"-stratum members of a series. Myths and
// reflections that share the series id are not part of the reading list.
func Chapters(members []models.Signal) []models.Signal {
	out := make([]models.Signal, 0, len(members))
	for _, s := range members {
		if s.Stratum == models.StratumSignal {
			out = append(out, s)
		}
	}
	return out
}

// SortEpisodes orders in place by season, then episode. The sort is
// stable; duplicate (season, episode) pairs keep their input order.
func SortEpisodes(list []models.Signal) {
	slices.SortStableFunc(list, func(a, b models.Signal) int {
		if c := cmp.Compare(a.Season, b.Season); c != 0 {
			return c
		}
		return cmp.Compare(a.Episode, b.Episode)
	})
}

// ReadingOrder is Chapters followed by SortEpisodes.
func ReadingOrder(members []models.Signal) []models.Signal {
	out := Chapters(members)
	SortEpisodes(out)
	return out
}

// NextSlug returns the slug after id in ordered, or nil when id is last
// or absent.
func NextSlug(ordered []models.Signal, id string) *string {
	for i, s := range ordered {
		if s.ID != id {
			continue
		}
		if i+1 < len(ordered) {
			next := ordered[i+1].Slug
			return &next
		}
		return nil
	}
	return nil
}

// Enrich joins each signal with the reader's progress, keyed by signal id.
// Bodies are dropped.
func Enrich(list []models.Signal, progressByID map[string]models.UserProgress) []models.EnrichedSignal {
	out := make([]models.EnrichedSignal, 0, len(list))
	for _, s := range list {
		s.Content = ""
		e := models.EnrichedSignal{Signal: s}
		if p, ok := progressByID[s.ID]; ok {
			e.Progress = &p
		}
		out = append(out, e)
	}
	return out
}
