package application

import (
	"context"
	"errors"
	"log/slog"
)

// saga collects undo steps for a unit of work that is not transactional.
// When the unit is atomic it records nothing.
type saga struct {
	log     *slog.Logger
	enabled bool
	steps   []step
}

type step struct {
	name string
	undo func(ctx context.Context) error
}

func newSaga(log *slog.Logger, enabled bool) *saga {
	return &saga{log: log, enabled: enabled}
}

func (s *saga) add(name string, undo func(ctx context.Context) error) {
	if s.enabled {
		s.steps = append(s.steps, step{name: name, undo: undo})
	}
}

// compensate runs the undo steps in reverse order, ignoring cancellation of
// ctx, and returns cause joined with every undo failure.
func (s *saga) compensate(ctx context.Context, cause error) error {
	if len(s.steps) == 0 {
		return cause
	}
	ctx = context.WithoutCancel(ctx)
	errs := []error{cause}
	for i := len(s.steps) - 1; i >= 0; i-- {
		if err := s.steps[i].undo(ctx); err != nil {
			s.log.Error("compensation step failed", "step", s.steps[i].name, "err", err)
			errs = append(errs, err)
		}
	}
	s.steps = nil
	return errors.Join(errs...)
}
