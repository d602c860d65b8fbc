package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/multierr"
)

type MetricsExporterType string

const (
	MetricsNone       MetricsExporterType = "none"
	MetricsStdout     MetricsExporterType = "stdout"
	MetricsPrometheus MetricsExporterType = "prometheus"
)

func ParseMetricsExporterType(typ string) (MetricsExporterType, error) {
	switch t := MetricsExporterType(strings.ToLower(strings.TrimSpace(typ))); t {
	case MetricsNone, MetricsStdout, MetricsPrometheus:
		return t, nil
	case "":
		return MetricsNone, nil
	default:
	}
	return MetricsNone, fmt.Errorf("unknown metrics exporter %q", typ)
}

// MetricsExporter owns the global meter provider it installed.
// The zero exporter of MetricsNone keeps the otel no-op provider.
type MetricsExporter struct {
	typ      MetricsExporterType
	provider *metric.MeterProvider
	registry *prometheus.Registry
}

func (e *MetricsExporter) Type() MetricsExporterType {
	if e == nil {
		return MetricsNone
	}
	return e.typ
}

// Handler serves the prometheus registry, other exporters serve 404.
func (e *MetricsExporter) Handler() http.Handler {
	if e == nil || e.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Flush pushes the pending stdout metrics, or writes the prometheus
// registry in the text exposition format into w.
func (e *MetricsExporter) Flush(ctx context.Context, w io.Writer) error {
	if e == nil || e.provider == nil {
		return nil
	}
	if e.registry == nil {
		return e.provider.ForceFlush(ctx)
	}
	families, err := e.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err = expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func (e *MetricsExporter) Shutdown(ctx context.Context) error {
	if e == nil || e.provider == nil {
		return nil
	}
	return multierr.Append(e.provider.ForceFlush(ctx), e.provider.Shutdown(ctx))
}

// Serves for test/dev environment.
func NewConsoleMetricsExporter(w io.Writer, interval, timeout time.Duration, opts ...stdoutmetric.Option) (*MetricsExporter, error) {
	if w == nil {
		w = os.Stdout
	}
	exporter, err := stdoutmetric.New(append([]stdoutmetric.Option{stdoutmetric.WithWriter(w)}, opts...)...)
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(
		exporter,
		metric.WithInterval(interval),
		metric.WithTimeout(timeout),
	)))
	otel.SetMeterProvider(mp)
	return &MetricsExporter{typ: MetricsStdout, provider: mp}, nil
}

// Serves for the product environment and fetch stats metrics by HTTP.
// A dedicated registry keeps the process default one untouched.
func NewPrometheusMetricsExporter() (*MetricsExporter, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	return &MetricsExporter{typ: MetricsPrometheus, provider: mp, registry: registry}, nil
}

func NewMetricsExporter(typ MetricsExporterType, w io.Writer, interval time.Duration) (*MetricsExporter, error) {
	switch typ {
	case MetricsStdout:
		return NewConsoleMetricsExporter(w, interval, interval, stdoutmetric.WithPrettyPrint())
	case MetricsPrometheus:
		return NewPrometheusMetricsExporter()
	case MetricsNone, "":
		return &MetricsExporter{typ: MetricsNone}, nil
	default:
	}
	return nil, fmt.Errorf("unknown metrics exporter %q", typ)
}
