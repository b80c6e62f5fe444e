package observability

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgerrors "catalog/pkg/errors"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestMetrics_CloudWatch(t *testing.T) {
	cw := &fakeCloudWatch{}
	m := NewMetrics("Catalog/test", cw, zap.NewNop())
	ctx := context.Background()

	m.RecordCommandExecution(ctx, "ArchiveCategory", 12*time.Millisecond, pkgerrors.ErrCategoryHasChildren.New())
	m.RecordCascadeSize(ctx, "archive", 4)

	require.Len(t, cw.inputs, 2)
	assert.Equal(t, "Catalog/test", aws.ToString(cw.inputs[0].Namespace))

	datum := cw.inputs[0].MetricData[0]
	assert.Equal(t, "CommandExecution", aws.ToString(datum.MetricName))
	assert.Equal(t, 12.0, aws.ToFloat64(datum.Value))
	assert.Equal(t, pkgerrors.CodeCategoryHasChildren, aws.ToString(datum.Dimensions[1].Value))

	assert.Equal(t, 4.0, aws.ToFloat64(cw.inputs[1].MetricData[0].Value))
}

func TestMetrics_NilClientAndFailuresAreSilent(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics("ns", nil, zap.NewNop()).RecordCascadeSize(context.Background(), "archive", 1)
	})

	cw := &fakeCloudWatch{err: errors.New("throttled")}
	assert.NotPanics(t, func() {
		NewMetrics("ns", cw, zap.NewNop()).RecordCommandExecution(context.Background(), "X", time.Second, nil)
	})
}

func TestPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics("catalog")
	ctx := context.Background()

	m.RecordCommandExecution(ctx, "ReparentCategory", time.Millisecond, nil)
	m.RecordCommandExecution(ctx, "ReparentCategory", time.Millisecond, nil)
	m.RecordCommandExecution(ctx, "ReparentCategory", time.Millisecond, errors.New("boom"))
	m.RecordHTTPRequest(http.MethodGet, "/api/v1/categories/{id}", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commands.WithLabelValues("ReparentCategory", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("ReparentCategory", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/categories/{id}", "4xx")))
}

func TestMultiRecorder(t *testing.T) {
	cw := &fakeCloudWatch{}
	prom := NewPrometheusMetrics("catalog")
	multi := MultiRecorder{NewMetrics("ns", cw, zap.NewNop()), prom}

	multi.RecordCascadeSize(context.Background(), "restore", 2)

	assert.Len(t, cw.inputs, 1)
	assert.Equal(t, 1, testutil.CollectAndCount(prom.cascade))
}

func TestTracer_DisabledRunsFunction(t *testing.T) {
	tracer := NewTracer("catalog", false)
	called := false
	err := tracer.TraceFunction(context.Background(), "command.X", func(ctx context.Context) error {
		called = true
		return errors.New("inner")
	})
	assert.True(t, called)
	assert.EqualError(t, err, "inner")
}

func TestTracer_EnabledWithoutSegmentRunsFunction(t *testing.T) {
	tracer := NewTracer("catalog", true)
	err := tracer.TraceFunction(context.Background(), "command.X", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}
