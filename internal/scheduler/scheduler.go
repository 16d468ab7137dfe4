package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// Jobs is the background work registered with the scheduler.
type Jobs interface {
	RefreshSweep(ctx context.Context) error
	FatSecretCheck(ctx context.Context) error
	Prewarm(ctx context.Context) error
	Cleanup(ctx context.Context) error
	MorningBriefing(ctx context.Context) error
	EveningSummary(ctx context.Context) error
	JournalReminders(ctx context.Context) error
}

const (
	SweepInterval   = 30 * time.Minute
	PrewarmInterval = time.Hour
	// ReminderTick is how often per-user journal reminder times are checked.
	ReminderTick = time.Minute
	jobTimeout      = 10 * time.Minute
)

type definition struct {
	name string
	def  gocron.JobDefinition
	run  func(context.Context) error
}

// New builds a scheduler with every job registered. Daily jobs fire in loc;
// the cleanup runs on UTC.
func New(ctx context.Context, j Jobs, loc *time.Location, opts ...gocron.SchedulerOption) (gocron.Scheduler, error) {
	opts = append([]gocron.SchedulerOption{gocron.WithLocation(loc)}, opts...)
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, err
	}

	defs := []definition{
		{"whoop_refresh_sweep", gocron.DurationJob(SweepInterval), j.RefreshSweep},
		{"fatsecret_check", gocron.DurationJob(SweepInterval), j.FatSecretCheck},
		{"prewarm", gocron.DurationJob(PrewarmInterval), j.Prewarm},
		{"morning_briefing", gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(8, 0, 0))), j.MorningBriefing},
		{"evening_summary", gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(21, 0, 0))), j.EveningSummary},
		{"conversation_cleanup", gocron.CronJob("CRON_TZ=UTC 0 3 * * *", false), j.Cleanup},
		{"journal_reminders", gocron.DurationJob(ReminderTick), j.JournalReminders},
	}
	for _, d := range defs {
		_, err = s.NewJob(
			d.def,
			gocron.NewTask(task(ctx, d.name, d.run)),
			gocron.WithName(d.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = s.Shutdown()
			return nil, err
		}
	}
	return s, nil
}

// Start registers the jobs and starts the scheduler.
func Start(ctx context.Context, j Jobs, loc *time.Location) (gocron.Scheduler, error) {
	s, err := New(ctx, j, loc)
	if err != nil {
		return nil, err
	}
	s.Start()
	return s, nil
}

func task(parent context.Context, name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(parent, jobTimeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("job", name).Interface("panic", r).Msg("job panicked")
			}
		}()
		start := time.Now()
		if err := run(ctx); err != nil {
			log.Error().Err(err).Str("job", name).Msg("job failed")
			return
		}
		log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
	}
}
