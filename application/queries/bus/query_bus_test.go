package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	pkgerrors "catalog/pkg/errors"
)

type lookupQuery struct {
	Slug string
}

func (q lookupQuery) Validate() error {
	if q.Slug == "" {
		return pkgerrors.ErrEmptySlug.New()
	}
	return nil
}

type countingRecorder struct {
	names []string
}

func (r *countingRecorder) RecordCommandExecution(ctx context.Context, name string, d time.Duration, err error) {
	r.names = append(r.names, name)
}

func (r *countingRecorder) RecordCascadeSize(context.Context, string, int) {}

func TestQueryBus_Ask(t *testing.T) {
	recorder := &countingRecorder{}
	b := NewQueryBus(MetricsMiddleware(recorder))
	require.NoError(t, b.Register(lookupQuery{}, QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
		return q.(lookupQuery).Slug, nil
	})))

	result, err := b.Ask(context.Background(), lookupQuery{Slug: "roses"})
	require.NoError(t, err)
	assert.Equal(t, "roses", result)
	assert.Equal(t, []string{"query.lookupQuery"}, recorder.names)

	_, err = b.Ask(context.Background(), lookupQuery{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeEmptySlug))
	assert.Len(t, recorder.names, 1, "invalid queries never reach the handler")

	assert.Error(t, b.Register(lookupQuery{}, nil))
}

func TestQueryBus_PreservesDomainErrors(t *testing.T) {
	b := NewQueryBus()
	require.NoError(t, b.Register(lookupQuery{}, QueryHandlerFunc(func(context.Context, Query) (interface{}, error) {
		return nil, pkgerrors.ErrSlugNotFound.New()
	})))

	_, err := b.Ask(context.Background(), lookupQuery{Slug: "missing"})
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	b := NewQueryBus(LoggingMiddleware(zap.New(core)))
	require.NoError(t, b.Register(lookupQuery{}, QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
		if q.(lookupQuery).Slug == "missing" {
			return nil, pkgerrors.ErrSlugNotFound.New()
		}
		return "ok", nil
	})))

	_, err := b.Ask(context.Background(), lookupQuery{Slug: "roses"})
	require.NoError(t, err)
	_, err = b.Ask(context.Background(), lookupQuery{Slug: "missing"})
	require.Error(t, err)

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "Query succeeded", logs.All()[0].Message)
	assert.Equal(t, "Query failed", logs.All()[1].Message)
	assert.Equal(t, "lookupQuery", logs.All()[1].ContextMap()["query"])
}
