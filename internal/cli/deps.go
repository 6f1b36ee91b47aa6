package cli

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/sharkusmanch/gd-backups/internal/backup"
	"github.com/sharkusmanch/gd-backups/internal/config"
	"github.com/sharkusmanch/gd-backups/internal/domain"
	"github.com/sharkusmanch/gd-backups/internal/host"
	"github.com/sharkusmanch/gd-backups/internal/http"
	"github.com/sharkusmanch/gd-backups/internal/metrics"
	"github.com/sharkusmanch/gd-backups/internal/notify"
	"github.com/sharkusmanch/gd-backups/internal/savefile"
	"github.com/sharkusmanch/gd-backups/pkg/version"
)

// deps holds the components shared by every command.
type deps struct {
	cfg     *config.Config
	logger  *slog.Logger
	locator *host.Locator
	store   *backup.Store
	limit   *atomic.Int64
}

// setup loads config, configures logging and builds the backup store.
func setup() (*deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	return newDeps(cfg, logger), nil
}

func newDeps(cfg *config.Config, logger *slog.Logger) *deps {
	d := &deps{
		cfg:    cfg,
		logger: logger,
		limit:  &atomic.Int64{},
	}
	d.limit.Store(int64(cfg.CleanupLimit))

	d.locator = host.NewLocator(
		host.WithSaveDir(cfg.SaveDirectory),
		host.WithLogger(logger),
	)

	var loader backup.InfoLoader = backup.NewLiveInfoLoader(savefile.NewCodec(savefile.WithLogger(logger)), logger)
	if cfg.InfoCache {
		loader = backup.NewCachedInfoLoader(loader, logger)
	}

	opts := []backup.StoreOption{
		backup.WithLogger(logger),
		backup.WithSaveDirProvider(d.locator),
		backup.WithCleanupLimit(func() int { return int(d.limit.Load()) }),
		backup.WithInfoLoader(loader),
	}
	if cfg.PlayerName != "" {
		opts = append(opts, backup.WithUser(cfg.PlayerName))
	}
	d.store = backup.NewStore(cfg.BackupDirectory, opts...)

	return d
}

// newHTTPClient creates an HTTP client with the configured retry policy.
func newHTTPClient(cfg *config.Config, logger *slog.Logger) *http.Client {
	return http.NewClient(
		http.WithRetryConfig(http.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		}),
		http.WithUserAgent(version.Get().UserAgent()),
		http.WithLogger(logger),
	)
}

// newNotifier always logs notifications and forwards them to Apprise when
// enabled, filtered by apprise.notify.
func newNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) domain.Notifier {
	var apprise domain.Notifier
	if cfg.Apprise.Enabled {
		apprise = notify.NewFilteredNotifier(
			notify.NewAppriseClient(
				cfg.Apprise.URL,
				cfg.Apprise.Key,
				notify.WithHTTPClient(httpClient),
				notify.WithLogger(logger),
			),
			cfg.Apprise.Notify.Allows,
		)
	}

	return notify.NewMultiNotifier(notify.NewLogNotifier(logger), apprise)
}

// newMetricsPusher returns nil when metrics are disabled.
func newMetricsPusher(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) domain.MetricsPusher {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.NewPushgatewayClient(
		cfg.Metrics.PushgatewayURL,
		metrics.WithHTTPClient(httpClient),
		metrics.WithLogger(logger),
	)
}
