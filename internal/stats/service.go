// Package stats builds the "today" snapshot over both providers.
package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"telegram-health-assistant/internal/fatsecret"
	"telegram-health-assistant/internal/metrics"
	"telegram-health-assistant/internal/models"
	"telegram-health-assistant/internal/providers"
	"telegram-health-assistant/internal/whoop"
)

type WhoopSource interface {
	FetchContext(ctx context.Context, userID int64) (*whoop.Payload, error)
}

type DiarySource interface {
	FoodDiary(ctx context.Context, userID int64, day time.Time) (*fatsecret.Diary, error)
}

// Service is the single entry point for today's numbers. Chat replies,
// briefings and the debug route all go through Today.
type Service struct {
	whoop WhoopSource
	diary DiarySource
	loc   *time.Location
	clock clockwork.Clock
}

type Option func(*Service)

func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func NewService(w WhoopSource, d DiarySource, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{whoop: w, diary: d, loc: loc, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// outcome is what one provider path produced.
type outcome struct {
	expired  bool
	degraded bool
}

// Today never fails. Provider problems zero that provider's fields and are
// reported through ExpiredProviders and DegradedProviders.
func (s *Service) Today(ctx context.Context, userID int64) models.Snapshot {
	now := s.clock.Now()
	snap := models.EmptySnapshot()

	var (
		diary        *fatsecret.Diary
		summary      *whoop.Summary
		fsOut, whOut outcome
	)
	var g errgroup.Group
	g.Go(func() error {
		fsOut = s.run(ctx, userID, models.ProviderFatSecret, func() error {
			d, err := s.diary.FoodDiary(ctx, userID, now.In(s.loc))
			if err != nil {
				return err
			}
			diary = d
			return nil
		})
		return nil
	})
	g.Go(func() error {
		whOut = s.run(ctx, userID, models.ProviderWhoop, func() error {
			p, err := s.whoop.FetchContext(ctx, userID)
			if err != nil {
				return err
			}
			sum := whoop.Summarize(p, now, s.loc)
			summary = &sum
			return nil
		})
		return nil
	})
	_ = g.Wait()

	if diary != nil {
		snap.CaloriesIn = diary.TotalCalories()
		snap.CaloriesInSource = models.SourceFatSecret
		snap.Meals = diary.Meals()
	}
	if summary != nil {
		summary.Apply(&snap)
	}
	// fixed order keeps the lists stable for callers
	for _, p := range []struct {
		name models.Provider
		out  outcome
	}{{models.ProviderFatSecret, fsOut}, {models.ProviderWhoop, whOut}} {
		if p.out.expired {
			snap.ExpiredProviders = append(snap.ExpiredProviders, p.name)
		}
		if p.out.degraded {
			snap.DegradedProviders = append(snap.DegradedProviders, p.name)
		}
	}
	if len(snap.ExpiredProviders) > 0 || len(snap.DegradedProviders) > 0 {
		snap.Status = models.StatusDegraded
	}

	metrics.RecordSnapshot(snap.CycleState)
	log.Info().Int64("user_id", userID).
		Int("calories_in", snap.CaloriesIn).
		Str("calories_in_source", string(snap.CaloriesInSource)).
		Int("calories_out", snap.CaloriesOut).
		Stringer("cycle_state", snap.CycleState).
		Str("status", string(snap.Status)).
		Msg("today snapshot built")
	return snap
}

// run executes one provider path and classifies its failure. Panics inside a
// provider path are contained here because they happen off the caller's
// goroutine.
func (s *Service) run(ctx context.Context, userID int64, p models.Provider, fn func() error) (out outcome) {
	logger := log.With().Int64("user_id", userID).Str("provider", string(p)).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("provider path panicked")
			metrics.RecordFetch(p, "error")
			out = outcome{degraded: true}
		}
	}()

	err := fn()
	switch {
	case err == nil:
		metrics.RecordFetch(p, "ok")
	case errors.Is(err, providers.ErrNotConnected):
		metrics.RecordFetch(p, "not_connected")
	case providers.IsCredentialExpired(err):
		logger.Warn().Msg("credential expired while building snapshot")
		metrics.RecordFetch(p, "expired")
		out.expired = true
	case errors.Is(err, providers.ErrTransient):
		logger.Warn().Err(err).Msg("provider unreachable")
		metrics.RecordFetch(p, "transient")
		out.degraded = true
	case ctx.Err() != nil:
		logger.Warn().Err(fmt.Errorf("%w: %w", ctx.Err(), err)).Msg("snapshot cancelled")
		metrics.RecordFetch(p, "cancelled")
		out.degraded = true
	default:
		logger.Error().Err(err).Msg("provider fetch failed")
		metrics.RecordFetch(p, "error")
		out.degraded = true
	}
	return out
}
