package sync

const (
	EventProgressUpdate   = "progress.update"
	EventProgressComplete = "progress.complete"
	EventSignalPublish    = "signal.publish"
	EventSignalDelete     = "signal.delete"
	EventSeriesUpdate     = "series.update"
)

// ProgressEvent is emitted after a progress write has been committed.
// At is unix milliseconds.
type ProgressEvent struct {
	Type        string  `json:"type"`
	UserID      string  `json:"user_id"`
	SignalID    string  `json:"signal_id"`
	Progress    float64 `json:"progress"`
	IsCompleted bool    `json:"is_completed"`
	At          int64   `json:"at"`
}

// ContentEvent announces studio changes so readers can refresh views.
type ContentEvent struct {
	Type    string `json:"type"`
	Slug    string `json:"slug"`
	Season  int    `json:"season,omitempty"`
	Episode int    `json:"episode,omitempty"`
	At      int64  `json:"at"`
}
