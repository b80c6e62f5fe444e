package sagas

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "catalog/pkg/errors"
)

func TestSaga_CompletesInOrder(t *testing.T) {
	var order []string
	s := New("reslug", nil).
		AddStep(Step{Name: "commit", Execute: func(context.Context) error { order = append(order, "commit"); return nil }}).
		AddStep(Step{Name: "register", Execute: func(context.Context) error { order = append(order, "register"); return nil }})

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"commit", "register"}, order)
	assert.Equal(t, StateCompleted, s.State())
	assert.NotEmpty(t, s.ID())
}

func TestSaga_CompensatesInReverse(t *testing.T) {
	var undone []string
	undo := func(name string) func(context.Context) error {
		return func(context.Context) error { undone = append(undone, name); return nil }
	}

	s := New("create", nil).
		AddStep(Step{Name: "a", Execute: func(context.Context) error { return nil }, Compensate: undo("a")}).
		AddStep(Step{Name: "b", Execute: func(context.Context) error { return nil }}).
		AddStep(Step{Name: "c", Execute: func(context.Context) error { return nil }, Compensate: undo("c")}).
		AddStep(Step{Name: "d", Execute: func(context.Context) error { return pkgerrors.SlugAlreadyInUse("roses") }, Compensate: undo("d")})

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSlugAlreadyInUse))
	assert.Equal(t, []string{"c", "a"}, undone)
	assert.Equal(t, StateCompensated, s.State())
}

func TestSaga_CompensationFailure(t *testing.T) {
	boom := errors.New("revert failed")
	s := New("reslug", nil).
		AddStep(Step{
			Name:       "commit",
			Execute:    func(context.Context) error { return nil },
			Compensate: func(context.Context) error { return boom },
		}).
		AddStep(Step{Name: "register", Execute: func(context.Context) error { return pkgerrors.SlugAlreadyInUse("roses") }})

	err := s.Execute(context.Background())
	assert.ErrorIs(t, err, ErrCompensationFailed)
	assert.ErrorIs(t, err, boom)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSlugAlreadyInUse))
	assert.Equal(t, StateCompensating, s.State())
}

func TestSaga_RetriesOnlyRetryableErrors(t *testing.T) {
	attempts := 0
	s := New("register", nil).AddStep(Step{
		Name: "register",
		Execute: func(context.Context) error {
			attempts++
			if attempts < 3 {
				return pkgerrors.ErrConcurrencyConflict.New()
			}
			return nil
		},
		MaxRetries: 3,
		Retryable:  pkgerrors.IsRetryable,
	})
	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, 3, attempts)

	attempts = 0
	s = New("register", nil).AddStep(Step{
		Name: "register",
		Execute: func(context.Context) error {
			attempts++
			return pkgerrors.SlugAlreadyInUse("roses")
		},
		MaxRetries: 3,
		Retryable:  pkgerrors.IsRetryable,
	})
	assert.Error(t, s.Execute(context.Background()))
	assert.Equal(t, 1, attempts)
}

func TestSaga_CompensatesAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	compensated := false

	s := New("reslug", nil).
		AddStep(Step{
			Name:    "commit",
			Execute: func(context.Context) error { return nil },
			Compensate: func(ctx context.Context) error {
				compensated = ctx.Err() == nil
				return nil
			},
		}).
		AddStep(Step{Name: "register", Execute: func(context.Context) error { cancel(); return context.Canceled }})

	assert.ErrorIs(t, s.Execute(ctx), context.Canceled)
	assert.True(t, compensated)
}
