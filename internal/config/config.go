package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	BackupDirectory     string        `mapstructure:"backup_directory"`
	SaveDirectory       string        `mapstructure:"save_directory"`
	PlayerName          string        `mapstructure:"player_name"`
	CleanupLimit        int           `mapstructure:"cleanup_limit"`
	AutoBackupRate      Rate          `mapstructure:"auto_backup_rate"`
	Schedule            string        `mapstructure:"schedule"`
	BackupOnStartup     bool          `mapstructure:"backup_on_startup"`
	BackupBeforeRestore bool          `mapstructure:"backup_before_restore"`
	InfoCache           bool          `mapstructure:"info_cache"`
	DryRun              bool          `mapstructure:"dry_run"`
	Retry               RetryConfig   `mapstructure:"retry"`
	Metrics             MetricsConfig `mapstructure:"metrics"`
	Apprise             AppriseConfig `mapstructure:"apprise"`
	Log                 LogConfig     `mapstructure:"log"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
}

// RetryConfig holds HTTP retry configuration.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// AppriseConfig holds Apprise notification configuration.
type AppriseConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	URL     string      `mapstructure:"url"`
	Key     string      `mapstructure:"key"`
	Notify  NotifyLevel `mapstructure:"notify"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configPath string
	logger     *slog.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:      viper.New(),
		logger: slog.Default(),
	}
}

// WithConfigPath sets a specific config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithLogger sets the logger used while watching the config file.
func (l *Loader) WithLogger(logger *slog.Logger) *Loader {
	l.logger = logger
	return l
}

// Load reads configuration from all sources and returns the merged config.
// Precedence (highest to lowest): CLI flags > environment > config file > defaults.
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()
	l.setupEnvBindings()

	if err := l.loadConfigFile(); err != nil {
		return nil, err
	}

	return l.decode()
}

// decode unmarshals the current viper state, fills path defaults and validates.
func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Path defaults depend on the OS and are resolved after loading.
	if cfg.Log.Output == "" {
		if logPath, err := DefaultLogPath(); err == nil {
			cfg.Log.Output = logPath
		}
		// Without a default path, logs go to stderr.
	}

	if cfg.BackupDirectory == "" {
		dir, err := DefaultBackupDir()
		if err != nil {
			return nil, fmt.Errorf("unable to determine backup directory: %w", err)
		}
		cfg.BackupDirectory = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	l.v.SetDefault("backup_directory", "")
	l.v.SetDefault("save_directory", "")
	l.v.SetDefault("player_name", "")
	l.v.SetDefault("cleanup_limit", DefaultCleanupLimit)
	l.v.SetDefault("auto_backup_rate", string(DefaultAutoBackupRate))
	l.v.SetDefault("schedule", DefaultSchedule)
	l.v.SetDefault("backup_on_startup", DefaultBackupOnStartup)
	l.v.SetDefault("backup_before_restore", DefaultBackupBeforeRestore)
	l.v.SetDefault("info_cache", DefaultInfoCache)
	l.v.SetDefault("dry_run", false)

	l.v.SetDefault("retry.max_attempts", DefaultRetryMaxAttempts)
	l.v.SetDefault("retry.initial_delay", DefaultRetryInitialDelay)
	l.v.SetDefault("retry.max_delay", DefaultRetryMaxDelay)

	l.v.SetDefault("metrics.enabled", DefaultMetricsEnabled)
	l.v.SetDefault("metrics.pushgateway_url", DefaultMetricsPushgatewayURL)

	l.v.SetDefault("apprise.enabled", DefaultAppriseEnabled)
	l.v.SetDefault("apprise.url", DefaultAppriseURL)
	l.v.SetDefault("apprise.key", DefaultAppriseKey)
	l.v.SetDefault("apprise.notify", string(DefaultAppriseNotify))

	l.v.SetDefault("log.level", DefaultLogLevel)
	l.v.SetDefault("log.output", "")
	l.v.SetDefault("log.max_size_mb", DefaultLogMaxSizeMB)
}

// setupEnvBindings configures environment variable bindings.
func (l *Loader) setupEnvBindings() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
}

// loadConfigFile loads configuration from a file.
func (l *Loader) loadConfigFile() error {
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
	} else {
		configDir, err := DefaultConfigDir()
		if err != nil {
			// Can't determine config dir, proceed without file config
			return nil
		}

		l.v.SetConfigName("config")
		l.v.SetConfigType("toml")
		l.v.AddConfigPath(configDir)
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		// Config file not found is not an error - use defaults
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// Watch reloads the config file whenever it changes and passes every valid
// result to onChange. Invalid edits are logged and ignored.
func (l *Loader) Watch(onChange func(*Config)) error {
	if l.v.ConfigFileUsed() == "" {
		return fmt.Errorf("no config file to watch")
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := l.decode()
		if err != nil {
			l.logger.Warn("ignoring config change", "file", e.Name, "error", err)
			return
		}

		l.logger.Info("config reloaded", "file", e.Name)
		onChange(cfg)
	})
	l.v.WatchConfig()

	return nil
}

// Set sets a configuration value (for CLI flag overrides).
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// ConfigFileUsed returns the path of the config file used, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.BackupDirectory == "" {
		return fmt.Errorf("backup_directory is required")
	}

	if c.SaveDirectory != "" {
		if _, err := os.Stat(c.SaveDirectory); err != nil {
			return fmt.Errorf("save_directory does not exist: %s", c.SaveDirectory)
		}
	}

	if !c.AutoBackupRate.IsValid() {
		names := make([]string, 0, len(Rates))
		for _, r := range Rates {
			names = append(names, r.String())
		}
		return fmt.Errorf("auto_backup_rate must be one of: %s", strings.Join(names, ", "))
	}

	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("schedule is not a valid cron expression: %w", err)
	}

	if c.Metrics.Enabled {
		if c.Metrics.PushgatewayURL == "" {
			return fmt.Errorf("metrics.pushgateway_url is required when metrics is enabled")
		}
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}

	if c.Retry.InitialDelay < 0 {
		return fmt.Errorf("retry.initial_delay cannot be negative")
	}

	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("retry.max_delay must be >= retry.initial_delay")
	}

	if c.Apprise.Enabled {
		if c.Apprise.URL == "" {
			return fmt.Errorf("apprise.url is required when apprise is enabled")
		}
		if c.Apprise.Key == "" {
			return fmt.Errorf("apprise.key is required when apprise is enabled")
		}
		if !c.Apprise.Notify.IsValid() {
			return fmt.Errorf("apprise.notify must be one of: error, warning, always")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	if c.Log.MaxSizeMB < 1 {
		return fmt.Errorf("log.max_size_mb must be at least 1")
	}

	return nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// WriteExampleConfig writes an example config file to the given path.
func WriteExampleConfig(path string) error {
	content := `# Geometry Dash save backups

# Where backups are stored (defaults to the per-user data directory)
# backup_directory = ""

# Directory containing CCGameManager.dat and CCLocalLevels.dat (auto-detected if empty)
save_directory = ""

# Name recorded in backup metadata (defaults to the OS user)
player_name = ""

# Number of automatic backups to keep; older ones are deleted. Negative keeps all.
cleanup_limit = 10

# never, every_startup, daily, every_other_day, every_three_days, weekly
auto_backup_rate = "daily"

# How often "serve" checks whether an automatic backup is due (cron syntax)
schedule = "@every 1h"

# Check for a due backup as soon as "serve" starts
backup_on_startup = true

# Back up current progress before restoring an older backup
backup_before_restore = true

# Persist decoded backup info next to each backup
info_cache = false

# HTTP retry configuration
[retry]
max_attempts = 3
initial_delay = "5s"
max_delay = "30s"

# Prometheus metrics (optional, disabled by default)
[metrics]
enabled = false
pushgateway_url = "http://pushgateway:9091"

# Apprise notifications (optional, disabled by default)
[apprise]
enabled = false
url = "http://localhost:8000"
key = "gd-backups"
# Notification level: "error", "warning", "always"
notify = "error"

# Logging configuration
[log]
# Level: debug, info, warn, error
level = "info"
# Output file path (defaults to gd-backups.log in the log directory)
# output = ""
# Max log file size before rotation (MB)
max_size_mb = 10
`
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0600)
}
