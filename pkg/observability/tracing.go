package observability

import (
	"context"
	"net/http"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// Tracer wraps X-Ray. A disabled tracer runs functions untraced.
type Tracer struct {
	serviceName string
	enabled     bool
}

// NewTracer creates a new tracer instance
func NewTracer(serviceName string, enabled bool) *Tracer {
	return &Tracer{
		serviceName: serviceName,
		enabled:     enabled,
	}
}

// Middleware opens a segment per HTTP request
func (t *Tracer) Middleware(next http.Handler) http.Handler {
	if !t.enabled {
		return next
	}
	return xray.Handler(xray.NewFixedSegmentNamer(t.serviceName), next)
}

// TraceFunction runs fn inside a subsegment named name. Errors returned by
// fn are recorded on the subsegment.
func (t *Tracer) TraceFunction(ctx context.Context, name string, fn func(context.Context) error) error {
	if !t.enabled || xray.GetSegment(ctx) == nil {
		return fn(ctx)
	}

	ctx, seg := xray.BeginSubsegment(ctx, name)
	err := fn(ctx)
	if err != nil {
		seg.AddError(err)
	}
	seg.Close(err)

	return err
}

// AddAnnotation adds an indexed annotation to the current segment
func (t *Tracer) AddAnnotation(ctx context.Context, key string, value string) {
	if !t.enabled {
		return
	}
	if seg := xray.GetSegment(ctx); seg != nil {
		seg.AddAnnotation(key, value)
	}
}
