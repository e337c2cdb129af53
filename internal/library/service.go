package library

import (
	"context"
	"time"

	"luminousdeep/internal/metrics"
	"luminousdeep/internal/progress"
	"luminousdeep/internal/signals"
)

type Service struct {
	Signals  *signals.Repo
	Progress *progress.Repo
}

func NewService(signalRepo *signals.Repo, progressRepo *progress.Repo) *Service {
	return &Service{Signals: signalRepo, Progress: progressRepo}
}

// GetLibraryState loads every signal and, for a known reader, all of their
// progress in one query, then partitions. Anonymous readers get no
// progress and therefore no continue-reading entry.
func (s *Service) GetLibraryState(ctx context.Context, userID string) (*State, error) {
	defer metrics.ObserveView("library", time.Now())

	all, err := s.Signals.List(ctx)
	if err != nil {
		return nil, err
	}
	byID, err := s.Progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := Partition(signals.Enrich(all, byID))
	return &st, nil
}
