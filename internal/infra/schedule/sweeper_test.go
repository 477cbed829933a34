package schedule

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"hotelres/internal/app/commands"
	reservationapp "hotelres/internal/app/handlers/reservations"
)

type busFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f busFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) { return f(ctx, cmd) }

func TestRunOnceDispatchesSweep(t *testing.T) {
	var got []string
	bus := busFunc(func(_ context.Context, cmd commands.Command) (any, error) {
		got = append(got, cmd.Key())
		return &reservationapp.SweepResult{NoShows: 2, Completed: 1}, nil
	})
	var buf bytes.Buffer
	s := &Sweeper{Bus: bus, Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	res, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.NoShows != 2 || res.Completed != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(got) != 1 || got[0] != (reservationapp.SweepReservationsCommand{}).Key() {
		t.Fatalf("dispatched = %v", got)
	}
	if !strings.Contains(buf.String(), "no_shows=2") {
		t.Fatalf("log = %s", buf.String())
	}
}

func TestRunOnceReportsFailure(t *testing.T) {
	boom := errors.New("store down")
	s := &Sweeper{Bus: busFunc(func(context.Context, commands.Command) (any, error) { return nil, boom })}
	if _, err := s.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	if err := (&Sweeper{}).Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestHousekeepingFailuresAreLogged(t *testing.T) {
	var buf bytes.Buffer
	ran := 0
	s := &Sweeper{
		Logger: slog.New(slog.NewTextHandler(&buf, nil)),
		Housekeeping: []func(context.Context) error{
			func(context.Context) error { ran++; return errors.New("purge failed") },
			func(context.Context) error { ran++; return nil },
		},
	}
	s.housekeep(context.Background())
	if ran != 2 {
		t.Fatalf("ran %d tasks", ran)
	}
	if !strings.Contains(buf.String(), "purge failed") {
		t.Fatalf("log = %s", buf.String())
	}
}
