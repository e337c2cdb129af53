package series

import (
	"context"
	"time"

	"luminousdeep/internal/metrics"
	"luminousdeep/internal/progress"
	"luminousdeep/internal/signals"
	"luminousdeep/pkg/models"
)

// View is a series with its reading list in order.
type View struct {
	Series  models.Series           `json:"series"`
	Signals []models.EnrichedSignal `json:"signals"`
}

type Service struct {
	Repo     *Repo
	Signals  *signals.Repo
	Progress *progress.Repo
}

func NewService(repo *Repo, signalRepo *signals.Repo, progressRepo *progress.Repo) *Service {
	return &Service{Repo: repo, Signals: signalRepo, Progress: progressRepo}
}

// GetSeriesBySlug returns a Published series and its "signal"-stratum
// members ordered by (season, episode), enriched with userID's progress.
// Unknown and unpublished slugs are (nil, nil).
func (s *Service) GetSeriesBySlug(ctx context.Context, userID, slug string) (*View, error) {
	defer metrics.ObserveView("series", time.Now())

	ser, err := s.Repo.GetBySlug(ctx, slug)
	if err != nil || ser == nil {
		return nil, err
	}
	if ser.Status != models.SeriesPublished {
		return nil, nil
	}
	return s.build(ctx, userID, *ser)
}

// GetAnyBySlug is GetSeriesBySlug without the status check, for the studio.
func (s *Service) GetAnyBySlug(ctx context.Context, userID, slug string) (*View, error) {
	ser, err := s.Repo.GetBySlug(ctx, slug)
	if err != nil || ser == nil {
		return nil, err
	}
	return s.build(ctx, userID, *ser)
}

func (s *Service) build(ctx context.Context, userID string, ser models.Series) (*View, error) {
	members, err := s.Signals.ListBySeries(ctx, ser.ID)
	if err != nil {
		return nil, err
	}
	ordered := signals.ReadingOrder(members)

	byID, err := s.Progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ser.ChapterCount = len(ordered)
	return &View{Series: ser, Signals: signals.Enrich(ordered, byID)}, nil
}
