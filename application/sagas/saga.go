// Package sagas runs a short sequence of steps where a later failure undoes
// the earlier, already committed ones. Category handlers use it to pair a
// committed category row with its slug registration.
package sagas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Step is a single saga step. Compensate may be nil for steps with nothing
// to undo.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
	MaxRetries int
	RetryDelay time.Duration
	// Retryable decides whether a failed attempt is retried. Nil retries
	// every error until MaxRetries is reached.
	Retryable func(err error) bool
}

// State represents the current state of a saga execution
type State string

const (
	StatePending      State = "PENDING"
	StateRunning      State = "RUNNING"
	StateCompleted    State = "COMPLETED"
	StateFailed       State = "FAILED"
	StateCompensating State = "COMPENSATING"
	StateCompensated  State = "COMPENSATED"
)

// ErrCompensationFailed is joined to the step error when an undo also failed.
var ErrCompensationFailed = errors.New("saga compensation failed")

// Saga orchestrates a series of steps with compensation logic
type Saga struct {
	id            string
	name          string
	steps         []Step
	compensations []func(ctx context.Context) error
	state         State
	logger        *zap.Logger
}

// New creates a saga
func New(name string, logger *zap.Logger) *Saga {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saga{
		id:     uuid.NewString(),
		name:   name,
		state:  StatePending,
		logger: logger,
	}
}

// AddStep appends a step
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs every step in order. When a step fails, the compensations of
// the completed steps run in reverse order and the step error is returned
// wrapped, so typed errors survive errors.As.
func (s *Saga) Execute(ctx context.Context) error {
	s.state = StateRunning
	s.logger.Debug("Starting saga",
		zap.String("saga_id", s.id),
		zap.String("saga_name", s.name),
		zap.Int("total_steps", len(s.steps)),
	)

	for i, step := range s.steps {
		if err := s.executeWithRetry(ctx, step); err != nil {
			s.state = StateFailed
			s.logger.Warn("Saga step failed",
				zap.String("saga_id", s.id),
				zap.String("saga_name", s.name),
				zap.String("step_name", step.Name),
				zap.Int("step_number", i+1),
				zap.Error(err),
			)

			if compErr := s.compensate(ctx); compErr != nil {
				return fmt.Errorf("saga %s failed at step %s: %w", s.name, step.Name, errors.Join(err, compErr))
			}
			s.state = StateCompensated
			return fmt.Errorf("saga %s failed at step %s: %w", s.name, step.Name, err)
		}
		if step.Compensate != nil {
			s.compensations = append(s.compensations, step.Compensate)
		}
	}

	s.state = StateCompleted
	return nil
}

func (s *Saga) executeWithRetry(ctx context.Context, step Step) error {
	maxRetries := step.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Debug("Retrying saga step",
				zap.String("saga_id", s.id),
				zap.String("step_name", step.Name),
				zap.Int("attempt", attempt+1),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(step.RetryDelay):
			}
		}

		lastErr = step.Execute(ctx)
		if lastErr == nil {
			return nil
		}
		if step.Retryable != nil && !step.Retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// compensate runs compensations in reverse order, continuing past failures.
// A context that is already done does not stop the undo.
func (s *Saga) compensate(ctx context.Context) error {
	s.state = StateCompensating
	ctx = context.WithoutCancel(ctx)

	var failed []error
	for i := len(s.compensations) - 1; i >= 0; i-- {
		if err := s.compensations[i](ctx); err != nil {
			s.logger.Error("Compensation failed",
				zap.String("saga_id", s.id),
				zap.String("saga_name", s.name),
				zap.Int("step_number", i+1),
				zap.Error(err),
			)
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return errors.Join(append([]error{ErrCompensationFailed}, failed...)...)
	}
	return nil
}

// State returns the current state of the saga
func (s *Saga) State() State {
	return s.state
}

// ID returns the saga ID
func (s *Saga) ID() string {
	return s.id
}
