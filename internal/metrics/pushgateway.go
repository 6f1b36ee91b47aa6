// Package metrics provides implementations for pushing metrics to remote endpoints.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/sharkusmanch/gd-backups/internal/domain"
	"github.com/sharkusmanch/gd-backups/internal/http"
	"github.com/sharkusmanch/gd-backups/pkg/version"
)

const (
	metricsJobName = "gd_backups"
	namespace      = "gd_backups"
)

// PushgatewayClient pushes metrics to a Prometheus Pushgateway.
type PushgatewayClient struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// PushgatewayOption configures a PushgatewayClient.
type PushgatewayOption func(*PushgatewayClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) PushgatewayOption {
	return func(p *PushgatewayClient) {
		p.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PushgatewayOption {
	return func(p *PushgatewayClient) {
		p.logger = logger
	}
}

// NewPushgatewayClient creates a new PushgatewayClient.
func NewPushgatewayClient(url string, opts ...PushgatewayOption) *PushgatewayClient {
	p := &PushgatewayClient{
		url:        strings.TrimSuffix(url, "/"),
		httpClient: http.NewClient(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Push replaces this host's metric group on the Pushgateway.
func (p *PushgatewayClient) Push(ctx context.Context, metrics *domain.Metrics) error {
	reg := buildRegistry(metrics)

	p.logger.Debug("pushing metrics to pushgateway",
		"url", p.url,
		"instance", metrics.Hostname,
	)

	pusher := push.New(p.url, metricsJobName).
		Gatherer(reg).
		Grouping("instance", metrics.Hostname).
		Client(p.httpClient.Doer())

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}

	p.logger.Debug("metrics pushed successfully")
	return nil
}

// Validate checks if the Pushgateway is reachable.
func (p *PushgatewayClient) Validate(ctx context.Context) error {
	readyURL := fmt.Sprintf("%s/-/ready", p.url)

	if err := p.httpClient.CheckConnectivity(ctx, readyURL); err != nil {
		// Try the root URL as fallback
		if err2 := p.httpClient.CheckConnectivity(ctx, p.url); err2 != nil {
			return fmt.Errorf("pushgateway not reachable at %s: %w", p.url, err)
		}
	}

	return nil
}

// buildRegistry collects the gauges describing m.
func buildRegistry(m *domain.Metrics) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
		reg.MustRegister(g)
		return g
	}

	up := gauge("up", "Service is running")
	if m.ServiceUp {
		up.Set(1)
	}

	info := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "info",
		Help:      "Build information",
	}, []string{"version", "go_version"})
	reg.MustRegister(info)
	info.WithLabelValues(version.Get().Version, runtime.Version()).Set(1)

	r := m.Run
	if r == nil {
		return reg
	}

	gauge("last_run_timestamp_seconds", "Unix timestamp of the last automatic backup run").Set(float64(r.EndTime.Unix()))
	gauge("last_run_duration_seconds", "Duration of the last automatic backup run").Set(r.Duration.Seconds())
	gauge("last_run_success", "Whether the last automatic backup run succeeded").Set(boolToFloat(r.Success))
	gauge("last_run_cleaned", "Automatic backups removed by the last run").Set(float64(r.Cleaned))
	gauge("last_run_nested_fixed", "Nested backups moved by the last run").Set(float64(r.NestedFixed))
	gauge("last_run_errors", "Errors reported by the last run").Set(float64(len(r.Errors)))
	gauge("snapshots", "Backups in the backup directory").Set(float64(r.Snapshots))
	gauge("auto_remove_snapshots", "Backups eligible for automatic removal").Set(float64(r.AutoRemove))

	skipped := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_skipped",
		Help:      "Whether the last run was skipped, by reason",
	}, []string{"reason"})
	reg.MustRegister(skipped)
	if r.Skipped {
		skipped.WithLabelValues(r.SkipReason.String()).Set(1)
	} else {
		skipped.WithLabelValues("none").Set(0)
	}

	return reg
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Ensure PushgatewayClient implements domain.MetricsPusher.
var _ domain.MetricsPusher = (*PushgatewayClient)(nil)
