package services

import (
	"context"
	"fmt"
	"time"

	"github.com/amine-amaach/uafacade/ports"
	"github.com/amine-amaach/uafacade/services/models"
	"github.com/awcullen/opcua/ua"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/amine-amaach/uafacade"

// InstrumentedTransportSvc decorates a SessionTransport with prometheus
// request metrics and one span per request.
type InstrumentedTransportSvc struct {
	next     ports.SessionTransport
	tracer   trace.Tracer
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

type InstrumentOption func(*instrumentConfig)

type instrumentConfig struct {
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
}

// WithRegisterer sets where the metrics are registered. Defaults to
// prometheus.DefaultRegisterer.
func WithRegisterer(r prometheus.Registerer) InstrumentOption {
	return func(c *instrumentConfig) { c.registerer = r }
}

// WithTracerProvider sets the span source. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) InstrumentOption {
	return func(c *instrumentConfig) { c.tracerProvider = tp }
}

func NewInstrumentedTransportSvc(next ports.SessionTransport, opts ...InstrumentOption) (*InstrumentedTransportSvc, error) {
	cfg := instrumentConfig{
		registerer:     prometheus.DefaultRegisterer,
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uafacade",
		Subsystem: "transport",
		Name:      "requests_total",
		Help:      "OPC-UA requests sent through the session transport.",
	}, []string{"op", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "uafacade",
		Subsystem: "transport",
		Name:      "request_duration_seconds",
		Help:      "Latency of OPC-UA requests sent through the session transport.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	for _, c := range []prometheus.Collector{requests, duration} {
		if err := cfg.registerer.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			switch existing := are.ExistingCollector.(type) {
			case *prometheus.CounterVec:
				requests = existing
			case *prometheus.HistogramVec:
				duration = existing
			}
		}
	}

	return &InstrumentedTransportSvc{
		next:     next,
		tracer:   cfg.tracerProvider.Tracer(instrumentationName),
		requests: requests,
		duration: duration,
	}, nil
}

func (t *InstrumentedTransportSvc) Browse(ctx context.Context, parent ua.NodeID, browseName, namespaceURI string) (ua.NodeID, bool, error) {
	ctx, span, start := t.start(ctx, "browse", parent,
		attribute.String("opcua.browse_name", browseName),
		attribute.String("opcua.namespace_uri", namespaceURI),
	)
	id, found, err := t.next.Browse(ctx, parent, browseName, namespaceURI)
	result := resultOf(err)
	if err == nil && !found {
		result = "not_found"
	}
	t.end(span, "browse", start, result, err)
	return id, found, err
}

func (t *InstrumentedTransportSvc) ReadAttribute(ctx context.Context, nodeID ua.NodeID) (ua.DataValue, error) {
	ctx, span, start := t.start(ctx, "read", nodeID)
	dv, err := t.next.ReadAttribute(ctx, nodeID)
	result := resultOf(err)
	if err == nil && dv.StatusCode.IsBad() {
		result = "bad_status"
		span.SetAttributes(attribute.String("opcua.status_code", fmt.Sprintf("0x%08X", uint32(dv.StatusCode))))
	}
	t.end(span, "read", start, result, err)
	return dv, err
}

func (t *InstrumentedTransportSvc) WriteAttribute(ctx context.Context, nodeID ua.NodeID, value ua.DataValue) (ua.StatusCode, error) {
	ctx, span, start := t.start(ctx, "write", nodeID)
	status, err := t.next.WriteAttribute(ctx, nodeID, value)
	result := resultOf(err)
	if err == nil && status.IsBad() {
		result = "bad_status"
		span.SetAttributes(attribute.String("opcua.status_code", fmt.Sprintf("0x%08X", uint32(status))))
	}
	t.end(span, "write", start, result, err)
	return status, err
}

func (t *InstrumentedTransportSvc) start(ctx context.Context, op string, nodeID ua.NodeID, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	attrs = append(attrs, attribute.String("opcua.node_id", fmt.Sprint(nodeID)))
	ctx, span := t.tracer.Start(ctx, "opcua/"+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, span, time.Now()
}

func (t *InstrumentedTransportSvc) end(span trace.Span, op string, start time.Time, result string, err error) {
	t.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	t.requests.WithLabelValues(op, result).Inc()
	span.SetAttributes(attribute.String("opcua.result", result))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case models.IsOperationError(err):
		return "bad_status"
	default:
		return "error"
	}
}
