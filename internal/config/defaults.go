// Package config handles application configuration loading and validation.
package config

import (
	"time"

	"github.com/sharkusmanch/gd-backups/internal/domain"
)

// Default configuration values.
const (
	DefaultCleanupLimit        = 10
	DefaultAutoBackupRate      = RateDaily
	DefaultSchedule            = "@every 1h"
	DefaultBackupOnStartup     = true
	DefaultBackupBeforeRestore = true
	DefaultInfoCache           = false

	DefaultMetricsEnabled        = false
	DefaultMetricsPushgatewayURL = ""

	DefaultRetryMaxAttempts  = 3
	DefaultRetryInitialDelay = 5 * time.Second
	DefaultRetryMaxDelay     = 30 * time.Second

	DefaultAppriseEnabled = false
	DefaultAppriseURL     = ""
	DefaultAppriseKey     = ""
	DefaultAppriseNotify  = NotifyError

	DefaultLogLevel     = "info"
	DefaultLogMaxSizeMB = 10
)

// NotifyLevel represents when to send notifications.
type NotifyLevel string

const (
	// NotifyError sends notifications only on errors.
	NotifyError NotifyLevel = "error"
	// NotifyWarning sends notifications on errors and warnings.
	NotifyWarning NotifyLevel = "warning"
	// NotifyAlways sends notifications on every backup.
	NotifyAlways NotifyLevel = "always"
)

// IsValid returns true if the notify level is valid.
func (n NotifyLevel) IsValid() bool {
	switch n {
	case NotifyError, NotifyWarning, NotifyAlways:
		return true
	default:
		return false
	}
}

// String returns the string representation of the notify level.
func (n NotifyLevel) String() string {
	return string(n)
}

// Allows reports whether a notification of the given level should be sent.
func (n NotifyLevel) Allows(level domain.NotificationLevel) bool {
	switch n {
	case NotifyAlways:
		return true
	case NotifyWarning:
		return level == domain.NotificationLevelError || level == domain.NotificationLevelWarning
	default:
		return level == domain.NotificationLevelError
	}
}

// Rate is how often automatic backups are made.
type Rate string

const (
	RateNever          Rate = "never"
	RateEveryStartup   Rate = "every_startup"
	RateDaily          Rate = "daily"
	RateEveryOtherDay  Rate = "every_other_day"
	RateEveryThreeDays Rate = "every_three_days"
	RateWeekly         Rate = "weekly"
)

// Rates lists every valid rate in increasing interval order.
var Rates = []Rate{RateNever, RateEveryStartup, RateDaily, RateEveryOtherDay, RateEveryThreeDays, RateWeekly}

// IsValid returns true if the rate is known.
func (r Rate) IsValid() bool {
	switch r {
	case RateNever, RateEveryStartup, RateDaily, RateEveryOtherDay, RateEveryThreeDays, RateWeekly:
		return true
	default:
		return false
	}
}

// Enabled reports whether automatic backups run at all.
func (r Rate) Enabled() bool {
	return r != RateNever
}

// MinInterval is how old the newest backup must be before another automatic
// one is made. The thresholds sit below the nominal period so that a game
// started at roughly the same time each day still gets its backup.
func (r Rate) MinInterval() time.Duration {
	switch r {
	case RateEveryStartup:
		return time.Hour
	case RateDaily:
		return 12 * time.Hour
	case RateEveryOtherDay:
		return 36 * time.Hour
	case RateEveryThreeDays:
		return 50 * time.Hour
	case RateWeekly:
		return 168 * time.Hour
	default:
		return 0
	}
}

// String returns the string representation of the rate.
func (r Rate) String() string {
	return string(r)
}
