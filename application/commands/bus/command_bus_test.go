package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgerrors "catalog/pkg/errors"
)

type pingCommand struct {
	Invalid bool
}

func (c pingCommand) Validate() error {
	if c.Invalid {
		return pkgerrors.ErrInvalidCommand.New()
	}
	return nil
}

type otherCommand struct{}

func (otherCommand) Validate() error { return nil }

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordCommandExecution(ctx context.Context, name string, d time.Duration, err error) {
	m.Called(name, err)
}

func (m *mockRecorder) RecordCascadeSize(ctx context.Context, operation string, size int) {
	m.Called(operation, size)
}

type recordingTracer struct {
	spans []string
}

func (r *recordingTracer) TraceFunction(ctx context.Context, name string, fn func(context.Context) error) error {
	r.spans = append(r.spans, name)
	return fn(ctx)
}

func pong() CommandHandler {
	return CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
		return "pong", nil
	})
}

func TestCommandBus_Dispatch(t *testing.T) {
	b := NewCommandBus()
	require.NoError(t, b.Register(pingCommand{}, pong()))

	result, err := b.Send(context.Background(), pingCommand{})
	require.NoError(t, err)
	assert.Equal(t, "pong", result)

	_, err = b.Send(context.Background(), otherCommand{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	assert.Error(t, b.Register(pingCommand{}, pong()), "duplicate registration")
}

func TestCommandBus_PreservesDomainErrors(t *testing.T) {
	b := NewCommandBus()
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(context.Context, Command) (interface{}, error) {
		return nil, pkgerrors.ConcurrencyConflict(4)
	})))

	_, err := b.Send(context.Background(), pingCommand{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConcurrencyConflict))
	assert.True(t, pkgerrors.IsRetryable(err))
}

func TestCommandBus_MiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next CommandHandler) CommandHandler {
			return CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
				order = append(order, name)
				return next.Handle(ctx, cmd)
			})
		}
	}

	b := NewCommandBus(tag("outer"), tag("inner"))
	require.NoError(t, b.Register(pingCommand{}, pong()))
	_, err := b.Send(context.Background(), pingCommand{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestValidationMiddleware_StopsInvalidCommands(t *testing.T) {
	called := false
	b := NewCommandBus(ValidationMiddleware())
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(context.Context, Command) (interface{}, error) {
		called = true
		return nil, nil
	})))

	_, err := b.Send(context.Background(), pingCommand{Invalid: true})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidCommand))
	assert.False(t, called)
}

func TestMetricsAndTracingMiddleware(t *testing.T) {
	failure := errors.New("boom")
	recorder := &mockRecorder{}
	recorder.On("RecordCommandExecution", "pingCommand", nil).Once()
	recorder.On("RecordCommandExecution", "otherCommand", failure).Once()
	tracer := &recordingTracer{}

	b := NewCommandBus(LoggingMiddleware(zap.NewNop()), TracingMiddleware(tracer), MetricsMiddleware(recorder))
	require.NoError(t, b.Register(pingCommand{}, pong()))
	require.NoError(t, b.Register(otherCommand{}, CommandHandlerFunc(func(context.Context, Command) (interface{}, error) {
		return nil, failure
	})))

	result, err := b.Send(context.Background(), pingCommand{})
	require.NoError(t, err)
	assert.Equal(t, "pong", result, "tracing keeps the handler result")

	_, err = b.Send(context.Background(), otherCommand{})
	assert.ErrorIs(t, err, failure)

	recorder.AssertExpectations(t)
	assert.Equal(t, []string{"command.pingCommand", "command.otherCommand"}, tracer.spans)
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "pingCommand", CommandName(pingCommand{}))
	assert.Equal(t, "pingCommand", CommandName(&pingCommand{}))
}
