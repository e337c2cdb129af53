// Package studio is the admin write path: signals, series, canon and
// entitlements. Reads for readers live in their own packages.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"luminousdeep/internal/canon"
	"luminousdeep/internal/gate"
	"luminousdeep/internal/series"
	"luminousdeep/internal/signals"
	synchub "luminousdeep/internal/sync"
	"luminousdeep/pkg/logging"
	"luminousdeep/pkg/models"
)

type Publisher interface {
	BroadcastJSON(v any)
}

// Notifier pings UDP subscribers when a signal goes out.
type Notifier interface {
	BroadcastNewSignal(slug, title string, season, episode int)
}

type Service struct {
	Signals      *signals.Repo
	Series       *series.Repo
	Canon        *canon.Repo
	Entitlements *gate.Repo
	Events       Publisher
	Notify       Notifier
	Now          func() time.Time
	logger       *slog.Logger
}

func NewService(signalRepo *signals.Repo, seriesRepo *series.Repo, canonRepo *canon.Repo, entitlements *gate.Repo, events Publisher, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		Signals:      signalRepo,
		Series:       seriesRepo,
		Canon:        canonRepo,
		Entitlements: entitlements,
		Events:       events,
		Notify:       notifier,
		Now:          time.Now,
		logger:       logging.Component(logger, "studio"),
	}
}

func (s *Service) now() int64 {
	return s.Now().UnixMilli()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (s *Service) emit(v any) {
	if s.Events != nil {
		s.Events.BroadcastJSON(v)
	}
}

func toSignal(id string, in SignalInput) (models.Signal, error) {
	stratum, err := models.ParseStratum(in.Stratum)
	if err != nil {
		return models.Signal{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	sig := models.Signal{
		ID:           id,
		Slug:         strings.TrimSpace(in.Slug),
		Season:       in.Season,
		Episode:      in.Episode,
		Stratum:      stratum,
		Title:        strings.TrimSpace(in.Title),
		Content:      in.Content,
		CoverImage:   in.CoverImage,
		SummaryShort: in.SummaryShort,
		SummaryLong:  in.SummaryLong,
		AmbientAudio: in.AmbientAudio,
		IsLocked:     in.IsLocked,
		GlitchPoint:  in.GlitchPoint,
		ReleaseDate:  in.ReleaseDate,
	}
	if in.SeriesID != nil && strings.TrimSpace(*in.SeriesID) != "" {
		sid := strings.TrimSpace(*in.SeriesID)
		sig.SeriesID = &sid
	}
	return sig, nil
}

// checkEpisode rejects a second "signal"-stratum member at the same
// (season, episode) of one series.
func (s *Service) checkEpisode(ctx context.Context, sig models.Signal) error {
	if !sig.InSeries() || sig.Stratum != models.StratumSignal {
		return nil
	}
	taken, err := s.Signals.EpisodeTaken(ctx, *sig.SeriesID, sig.Season, sig.Episode, sig.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateEpisode
	}
	return nil
}

func (s *Service) CreateSignal(ctx context.Context, in SignalInput) (*models.Signal, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	sig, err := toSignal(uuid.NewString(), in)
	if err != nil {
		return nil, err
	}
	if err := s.checkEpisode(ctx, sig); err != nil {
		return nil, err
	}
	sig.UpdatedAt = s.now()

	if err := s.Signals.Create(ctx, sig); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	s.logger.Info("signal created", "id", sig.ID, "slug", sig.Slug)
	return &sig, nil
}

// UpdateSignal replaces every editable field. Publication time is kept.
// A missing id, including one deleted while the edit was in flight, is
// (nil, nil).
func (s *Service) UpdateSignal(ctx context.Context, id string, in SignalInput) (*models.Signal, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	existing, err := s.Signals.GetByID(ctx, id)
	if err != nil || existing == nil {
		return nil, err
	}
	sig, err := toSignal(id, in)
	if err != nil {
		return nil, err
	}
	if err := s.checkEpisode(ctx, sig); err != nil {
		return nil, err
	}
	sig.PublishedAt = existing.PublishedAt
	sig.UpdatedAt = s.now()

	ok, err := s.Signals.Update(ctx, sig)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &sig, nil
}

func (s *Service) DeleteSignal(ctx context.Context, id string) (bool, error) {
	existing, err := s.Signals.GetByID(ctx, id)
	if err != nil || existing == nil {
		return false, err
	}
	ok, err := s.Signals.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	s.emit(synchub.ContentEvent{Type: synchub.EventSignalDelete, Slug: existing.Slug, At: s.now()})
	s.logger.Info("signal deleted", "id", id, "slug", existing.Slug)
	return true, nil
}

// PublishSignal stamps publishedAt on first publish and announces the
// signal on the sync hub and over UDP. Republishing re-announces without
// moving the timestamp.
func (s *Service) PublishSignal(ctx context.Context, id string) (*models.Signal, error) {
	sig, err := s.Signals.GetByID(ctx, id)
	if err != nil || sig == nil {
		return nil, err
	}
	if sig.PublishedAt == 0 {
		sig.PublishedAt = s.now()
		sig.UpdatedAt = sig.PublishedAt
		ok, err := s.Signals.Update(ctx, *sig)
		if err != nil || !ok {
			return nil, err
		}
	}

	s.emit(synchub.ContentEvent{
		Type:    synchub.EventSignalPublish,
		Slug:    sig.Slug,
		Season:  sig.Season,
		Episode: sig.Episode,
		At:      sig.PublishedAt,
	})
	if s.Notify != nil {
		s.Notify.BroadcastNewSignal(sig.Slug, sig.Title, sig.Season, sig.Episode)
	}
	s.logger.Info("signal published", "id", id, "slug", sig.Slug)
	return sig, nil
}

func toSeries(id string, in SeriesInput) (models.Series, error) {
	status, err := models.ParseSeriesStatus(in.Status)
	if err != nil {
		return models.Series{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return models.Series{
		ID:          id,
		Slug:        strings.TrimSpace(in.Slug),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		CoverImage:  in.CoverImage,
		Status:      status,
	}, nil
}

func (s *Service) CreateSeries(ctx context.Context, in SeriesInput) (*models.Series, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	ser, err := toSeries(uuid.NewString(), in)
	if err != nil {
		return nil, err
	}
	ser.UpdatedAt = s.now()
	if err := s.Series.Create(ctx, ser); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	s.emit(synchub.ContentEvent{Type: synchub.EventSeriesUpdate, Slug: ser.Slug, At: ser.UpdatedAt})
	return &ser, nil
}

// UpdateSeries is a full-field patch; any status transition is allowed.
func (s *Service) UpdateSeries(ctx context.Context, id string, in SeriesInput) (*models.Series, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	ser, err := toSeries(id, in)
	if err != nil {
		return nil, err
	}
	ser.UpdatedAt = s.now()
	ok, err := s.Series.Update(ctx, ser)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	s.emit(synchub.ContentEvent{Type: synchub.EventSeriesUpdate, Slug: ser.Slug, At: ser.UpdatedAt})
	return s.Series.GetByID(ctx, id)
}

func (s *Service) CreateCanon(ctx context.Context, in CanonInput) (*models.CanonEntry, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	e := models.CanonEntry{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		Version:   1,
		UpdatedAt: s.now(),
	}
	if err := s.Canon.Create(ctx, e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Service) UpdateCanon(ctx context.Context, id string, in CanonInput) (*models.CanonEntry, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	ok, err := s.Canon.Update(ctx, id, strings.TrimSpace(in.Title), in.Content, s.now())
	if err != nil || !ok {
		return nil, err
	}
	return s.Canon.Get(ctx, id)
}

func (s *Service) LockCanon(ctx context.Context, id string) (*models.CanonEntry, error) {
	ok, err := s.Canon.Lock(ctx, id, s.now())
	if err != nil || !ok {
		return nil, err
	}
	return s.Canon.Get(ctx, id)
}

func (s *Service) GrantEntitlement(ctx context.Context, userID string, in EntitlementInput) (*gate.Entitlement, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id required", ErrInvalidInput)
	}
	e := gate.Entitlement{UserID: userID, Source: in.Source, GrantedAt: s.now()}
	if e.Source == "" {
		e.Source = "manual"
	}
	if err := s.Entitlements.Grant(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info("entitlement granted", "user_id", userID, "source", e.Source)
	return &e, nil
}

func (s *Service) RevokeEntitlement(ctx context.Context, userID string) (bool, error) {
	return s.Entitlements.Revoke(ctx, strings.TrimSpace(userID))
}
