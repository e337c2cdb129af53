package progress

import "luminousdeep/pkg/models"

// MergeProgress folds an incoming write into the stored record.
//
// progress and last_read_at are last-write-wins; is_completed is a
// monotonic OR, so a stale "not completed" write never un-completes a
// signal. A nil existing record yields the incoming record. Progress is
// clamped to [0, 100] either way.
func MergeProgress(existing *models.UserProgress, incoming models.UserProgress) models.UserProgress {
	incoming.Progress = models.ClampProgress(incoming.Progress)
	if existing == nil {
		return incoming
	}

	merged := *existing
	merged.Progress = incoming.Progress
	merged.LastReadAt = incoming.LastReadAt
	merged.IsCompleted = existing.IsCompleted || incoming.IsCompleted
	return merged
}
