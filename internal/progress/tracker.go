package progress

import (
	"context"
	"log/slog"
	"time"

	"luminousdeep/internal/metrics"
	synchub "luminousdeep/internal/sync"
	"luminousdeep/pkg/logging"
	"luminousdeep/pkg/models"
)

// Publisher delivers a committed progress event to its owner's live
// connections only. *sync.Hub satisfies it.
type Publisher interface {
	SendToUser(userID string, v any)
}

// Tracker records reading progress. Calls without an identity are silent
// no-ops: guests read without being asked to sign in.
type Tracker struct {
	Repo   *Repo
	Events Publisher
	Now    func() time.Time
	logger *slog.Logger
}

func NewTracker(repo *Repo, events Publisher, logger *slog.Logger) *Tracker {
	return &Tracker{
		Repo:   repo,
		Events: events,
		Now:    time.Now,
		logger: logging.Component(logger, "progress"),
	}
}

func (t *Tracker) now() int64 {
	if t.Now == nil {
		return time.Now().UnixMilli()
	}
	return t.Now().UnixMilli()
}

// SaveProgress records progress for (userID, signalID). Safe to call
// redundantly: repeated or out-of-order calls never un-complete a signal.
func (t *Tracker) SaveProgress(ctx context.Context, userID, signalID string, progress float64, isCompleted bool) error {
	if userID == "" {
		metrics.ProgressWrite("save", "anonymous")
		return nil
	}

	saved, outcome, err := t.Repo.Save(ctx, models.UserProgress{
		UserID:      userID,
		SignalID:    signalID,
		Progress:    progress,
		IsCompleted: isCompleted,
		LastReadAt:  t.now(),
	})
	if err != nil {
		metrics.ProgressWrite("save", "error")
		return err
	}
	metrics.ProgressWrite("save", outcome)
	t.logger.Debug("progress saved", "user_id", userID, "signal_id", signalID, "outcome", outcome)

	t.publish(synchub.EventProgressUpdate, saved)
	return nil
}

// CompleteTransmission marks the signal completed for the reader.
// Idempotent.
func (t *Tracker) CompleteTransmission(ctx context.Context, userID, signalID string) error {
	if userID == "" {
		metrics.ProgressWrite("complete", "anonymous")
		return nil
	}

	saved, outcome, err := t.Repo.MarkCompleted(ctx, userID, signalID, t.now())
	if err != nil {
		metrics.ProgressWrite("complete", "error")
		return err
	}
	metrics.ProgressWrite("complete", outcome)
	t.logger.Debug("transmission complete", "user_id", userID, "signal_id", signalID, "outcome", outcome)

	t.publish(synchub.EventProgressComplete, saved)
	return nil
}

func (t *Tracker) publish(eventType string, p models.UserProgress) {
	if t.Events == nil {
		return
	}
	t.Events.SendToUser(p.UserID, synchub.ProgressEvent{
		Type:        eventType,
		UserID:      p.UserID,
		SignalID:    p.SignalID,
		Progress:    p.Progress,
		IsCompleted: p.IsCompleted,
		At:          p.LastReadAt,
	})
}
