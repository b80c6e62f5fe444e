package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"catalog/application/ports"
)

// Command represents a command that changes state
type Command interface {
	Validate() error
}

// CommandHandler handles a specific command type and returns its result
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) (interface{}, error)
}

// CommandHandlerFunc is an adapter to allow functions to be used as handlers
type CommandHandlerFunc func(ctx context.Context, cmd Command) (interface{}, error)

// Handle implements CommandHandler
func (f CommandHandlerFunc) Handle(ctx context.Context, cmd Command) (interface{}, error) {
	return f(ctx, cmd)
}

// Middleware defines command middleware
type Middleware func(next CommandHandler) CommandHandler

// CommandBus dispatches commands to their handlers
type CommandBus struct {
	handlers map[reflect.Type]CommandHandler
	pipeline *Pipeline
	mu       sync.RWMutex
}

// NewCommandBus creates a new command bus. Middleware wraps every handler
// registered afterwards, outermost first.
func NewCommandBus(middlewares ...Middleware) *CommandBus {
	return &CommandBus{
		handlers: make(map[reflect.Type]CommandHandler),
		pipeline: NewPipeline(middlewares...),
	}
}

// Register registers a handler for a command type
func (b *CommandBus) Register(cmdType Command, handler CommandHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(cmdType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for command type %s", t.Name())
	}

	b.handlers[t] = b.pipeline.Execute(handler)
	return nil
}

// Send dispatches a command to its handler. Typed domain errors survive
// the wrapping for errors.As.
func (b *CommandBus) Send(ctx context.Context, cmd Command) (interface{}, error) {
	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(cmd)]
	b.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %T", ErrHandlerNotFound, cmd)
	}

	result, err := handler.Handle(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("command handler failed: %w", err)
	}
	return result, nil
}

// CommandName is the unqualified type name of cmd.
func CommandName(cmd Command) string {
	t := reflect.TypeOf(cmd)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// LoggingMiddleware logs command execution
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
			name := CommandName(cmd)
			start := time.Now()
			logger.Debug("Executing command", zap.String("command", name))

			result, err := next.Handle(ctx, cmd)
			if err != nil {
				logger.Warn("Command failed",
					zap.String("command", name),
					zap.Duration("duration", time.Since(start)),
					zap.Error(err),
				)
			} else {
				logger.Info("Command succeeded",
					zap.String("command", name),
					zap.Duration("duration", time.Since(start)),
				)
			}
			return result, err
		})
	}
}

// ValidationMiddleware ensures commands are valid
func ValidationMiddleware() Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
			if err := cmd.Validate(); err != nil {
				return nil, err
			}
			return next.Handle(ctx, cmd)
		})
	}
}

// MetricsMiddleware records duration and outcome of every command
func MetricsMiddleware(recorder ports.MetricsRecorder) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
			start := time.Now()
			result, err := next.Handle(ctx, cmd)
			recorder.RecordCommandExecution(ctx, CommandName(cmd), time.Since(start), err)
			return result, err
		})
	}
}

// Tracer opens a span around fn
type Tracer interface {
	TraceFunction(ctx context.Context, name string, fn func(context.Context) error) error
}

// TracingMiddleware runs each command inside a trace span
func TracingMiddleware(tracer Tracer) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
			var result interface{}
			err := tracer.TraceFunction(ctx, "command."+CommandName(cmd), func(ctx context.Context) error {
				var err error
				result, err = next.Handle(ctx, cmd)
				return err
			})
			return result, err
		})
	}
}

// Pipeline chains multiple middleware together
type Pipeline struct {
	middlewares []Middleware
}

// NewPipeline creates a new middleware pipeline
func NewPipeline(middlewares ...Middleware) *Pipeline {
	return &Pipeline{middlewares: middlewares}
}

// Execute wraps handler so that the first middleware runs outermost
func (p *Pipeline) Execute(handler CommandHandler) CommandHandler {
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		handler = p.middlewares[i](handler)
	}
	return handler
}

// Errors
var (
	ErrHandlerNotFound = errors.New("command handler not found")
)
