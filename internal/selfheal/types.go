// Package selfheal implements the Self-Healing Orchestrator: it
// periodically assesses container health, attempts bounded, blacklist-aware
// recovery, runs scheduled maintenance windows (Docker system cleanup, log
// rotation, health-endpoint validation, config backup, certificate checks),
// and reports everything through the shared notifier. Grounded on
// maintenance_orchestrator.py.
package selfheal

import (
	"time"

	"github.com/millsmillsymills/controlplane/internal/container"
)

// Task is one named unit of scheduled maintenance work, grounded on the
// MaintenanceTask dataclass.
type Task struct {
	Name        string
	Priority    int
	MaxDuration time.Duration
}

// TaskResult records one execution of a Task for history and metrics,
// grounded on the task_record dict built in execute_maintenance_task.
type TaskResult struct {
	Name       string
	Success    bool
	Duration   time.Duration
	ExecutedAt time.Time
}

// recoveryState tracks per-service recovery attempts and blacklisting,
// grounded on ServiceHealth.recovery_attempts / recovery_blacklist.
type recoveryState struct {
	attempts     int
	blacklisted  bool
	lastRecovery time.Time
}

// Endpoint is one health-check URL validated during the maintenance
// window, grounded on health_check_validation's health_endpoints map.
type Endpoint struct {
	Name string
	URL  string
}

// Stats mirrors healing_stats: running counters surfaced on the
// dashboard/API.
type Stats struct {
	SuccessfulRecoveries     int
	FailedRecoveries         int
	MaintenanceTasksComplete int
}

// HealthSnapshot is the last observed health of one container, exposed to
// API consumers.
type HealthSnapshot struct {
	container.Health
	RecoveryAttempts int
	Blacklisted      bool
}
