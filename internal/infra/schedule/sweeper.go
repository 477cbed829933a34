// Package schedule runs periodic maintenance commands.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"hotelres/internal/app/commands"
	reservationapp "hotelres/internal/app/handlers/reservations"
)

// Sweeper dispatches SweepReservationsCommand on a fixed interval.
type Sweeper struct {
	Bus      commands.Bus
	Interval time.Duration
	Logger   *slog.Logger
	// Housekeeping runs after every sweep; failures are logged only.
	Housekeeping []func(ctx context.Context) error

	scheduler gocron.Scheduler
}

// RunOnce performs a single sweep and logs what changed.
func (s *Sweeper) RunOnce(ctx context.Context) (*reservationapp.SweepResult, error) {
	res, err := commands.Dispatch[reservationapp.SweepReservationsCommand, *reservationapp.SweepResult](ctx, s.Bus, reservationapp.SweepReservationsCommand{})
	if err != nil {
		s.logger().Warn("reservation sweep failed", "error", err)
		return nil, err
	}
	if res.NoShows > 0 || res.Completed > 0 {
		s.logger().Info("reservation sweep", "no_shows", res.NoShows, "completed", res.Completed)
	}
	return res, nil
}

// Start schedules the sweep in UTC. Overlapping runs are skipped.
func (s *Sweeper) Start(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			_, _ = s.RunOnce(ctx)
			s.housekeep(ctx)
		}),
		gocron.WithName("reservations.sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return err
	}
	s.scheduler = sched
	sched.Start()
	return nil
}

func (s *Sweeper) housekeep(ctx context.Context) {
	for _, task := range s.Housekeeping {
		if err := task(ctx); err != nil {
			s.logger().Warn("housekeeping failed", "error", err)
		}
	}
}

func (s *Sweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}

func (s *Sweeper) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
