package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	pkgerrors "catalog/pkg/errors"
)

// CloudWatchAPI is the subset of the CloudWatch client used here
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Metrics sends command metrics to CloudWatch. A nil client disables it.
type Metrics struct {
	namespace string
	client    CloudWatchAPI
	logger    *zap.Logger
	now       func() time.Time
}

// NewMetrics creates a new metrics instance
func NewMetrics(namespace string, client CloudWatchAPI, logger *zap.Logger) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
		now:       time.Now,
	}
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if d := pkgerrors.GetDomainError(err); d != nil {
		return d.Code
	}
	return "failure"
}

// RecordCommandExecution records metrics for command execution
func (m *Metrics) RecordCommandExecution(ctx context.Context, commandName string, duration time.Duration, err error) {
	if m.client == nil {
		return
	}

	dimensions := []types.Dimension{
		{Name: aws.String("CommandName"), Value: aws.String(commandName)},
		{Name: aws.String("Outcome"), Value: aws.String(outcome(err))},
	}
	m.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("CommandExecution"),
			Dimensions: dimensions,
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       types.StandardUnitMilliseconds,
			Timestamp:  aws.Time(m.now()),
		},
		{
			MetricName: aws.String("CommandCount"),
			Dimensions: dimensions,
			Value:      aws.Float64(1),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(m.now()),
		},
	})
}

// RecordCascadeSize records how many descendants a structural command touched
func (m *Metrics) RecordCascadeSize(ctx context.Context, operation string, size int) {
	if m.client == nil {
		return
	}

	m.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("CascadeSize"),
			Dimensions: []types.Dimension{
				{Name: aws.String("Operation"), Value: aws.String(operation)},
			},
			Value:     aws.Float64(float64(size)),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(m.now()),
		},
	})
}

func (m *Metrics) put(ctx context.Context, data []types.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	// Metric failures never fail the operation
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Warn("Failed to send metrics", zap.Error(err))
	}
}

// PrometheusMetrics exposes command, cascade and HTTP metrics on a registry
type PrometheusMetrics struct {
	Registry *prometheus.Registry

	commands     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	cascade      *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewPrometheusMetrics registers the collectors on a fresh registry
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		Registry: registry,
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Commands handled, by name and outcome",
			},
			[]string{"command", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Command handling latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		cascade: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cascade_size",
				Help:      "Descendants touched by structural commands",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"operation"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests, by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(m.commands, m.duration, m.cascade, m.httpRequests, m.httpDuration)
	return m
}

// RecordCommandExecution implements ports.MetricsRecorder
func (m *PrometheusMetrics) RecordCommandExecution(ctx context.Context, commandName string, duration time.Duration, err error) {
	m.commands.WithLabelValues(commandName, outcome(err)).Inc()
	m.duration.WithLabelValues(commandName).Observe(duration.Seconds())
}

// RecordCascadeSize implements ports.MetricsRecorder
func (m *PrometheusMetrics) RecordCascadeSize(ctx context.Context, operation string, size int) {
	m.cascade.WithLabelValues(operation).Observe(float64(size))
}

// RecordHTTPRequest records one served request
func (m *PrometheusMetrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Recorder is the measurement surface shared by the recorders here
type Recorder interface {
	RecordCommandExecution(ctx context.Context, commandName string, duration time.Duration, err error)
	RecordCascadeSize(ctx context.Context, operation string, size int)
}

// MultiRecorder fans measurements out to several recorders
type MultiRecorder []Recorder

// RecordCommandExecution implements ports.MetricsRecorder
func (m MultiRecorder) RecordCommandExecution(ctx context.Context, commandName string, duration time.Duration, err error) {
	for _, r := range m {
		r.RecordCommandExecution(ctx, commandName, duration, err)
	}
}

// RecordCascadeSize implements ports.MetricsRecorder
func (m MultiRecorder) RecordCascadeSize(ctx context.Context, operation string, size int) {
	for _, r := range m {
		r.RecordCascadeSize(ctx, operation, size)
	}
}
