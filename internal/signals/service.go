package signals

import (
	"context"
	"log/slog"
	"time"

	"luminousdeep/internal/gate"
	"luminousdeep/internal/metrics"
	"luminousdeep/internal/progress"
	"luminousdeep/pkg/logging"
	"luminousdeep/pkg/models"
)

// View is a single signal as served to a reader: enriched with their
// progress, linked to the next episode, and gated.
type View struct {
	models.EnrichedSignal
	NextSlug *string     `json:"next_slug"`
	Gate     *gate.State `json:"gate,omitempty"`
}

type Service struct {
	Repo     *Repo
	Progress *progress.Repo
	Gate     *gate.Policy
	logger   *slog.Logger
}

func NewService(repo *Repo, progressRepo *progress.Repo, policy *gate.Policy, logger *slog.Logger) *Service {
	return &Service{
		Repo:     repo,
		Progress: progressRepo,
		Gate:     policy,
		logger:   logging.Component(logger, "signals"),
	}
}

// GetSignal fetches one signal by slug for userID ("" for anonymous).
// A miss is (nil, nil).
func (s *Service) GetSignal(ctx context.Context, userID, slug string) (*View, error) {
	defer metrics.ObserveView("signal", time.Now())

	sig, err := s.Repo.GetBySlug(ctx, slug)
	if err != nil || sig == nil {
		return nil, err
	}

	var next *string
	if sig.InSeries() && sig.Stratum == models.StratumSignal {
		members, err := s.Repo.ListBySeries(ctx, *sig.SeriesID)
		if err != nil {
			return nil, err
		}
		next = NextSlug(ReadingOrder(members), sig.ID)
	}

	var st *gate.State
	if s.Gate != nil {
		if st, err = s.Gate.Apply(ctx, userID, sig); err != nil {
			return nil, err
		}
	}

	view := &View{
		EnrichedSignal: models.EnrichedSignal{Signal: *sig},
		NextSlug:       next,
		Gate:           st,
	}
	if userID != "" && s.Progress != nil {
		p, err := s.Progress.Get(ctx, userID, sig.ID)
		if err != nil {
			return nil, err
		}
		view.Progress = p
	}

	if st != nil {
		s.logger.Debug("signal gated", "slug", slug, "withheld", st.Withheld)
	}
	return view, nil
}
