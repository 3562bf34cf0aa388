package selfheal

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/millsmillsymills/controlplane/internal/container"
	"github.com/millsmillsymills/controlplane/internal/platform"
)

// defaultEndpoints mirrors health_check_validation's health_endpoints map.
// Hostnames follow the stack's own service names; operators override via
// config for deployments that don't match this compose layout.
var defaultEndpoints = []Endpoint{
	{Name: "influxdb", URL: "http://influxdb:8086/ping"},
	{Name: "prometheus", URL: "http://prometheus:9090/-/healthy"},
	{Name: "grafana", URL: "http://grafana:3000/api/health"},
	{Name: "alertmanager", URL: "http://alertmanager:9093/-/healthy"},
	{Name: "vault", URL: "http://vault:8200/v1/sys/health"},
}

// maintenanceTasks mirrors queue_routine_maintenance's named task list with
// their priorities and a per-task duration bound.
var maintenanceTasks = []Task{
	{Name: "docker_system_cleanup", Priority: 1, MaxDuration: 2 * time.Minute},
	{Name: "log_rotation_cleanup", Priority: 2, MaxDuration: 5 * time.Minute},
	{Name: "health_check_validation", Priority: 1, MaxDuration: 30 * time.Second},
	{Name: "backup_critical_configs", Priority: 1, MaxDuration: 5 * time.Minute},
	{Name: "security_updates_check", Priority: 3, MaxDuration: time.Minute},
	{Name: "certificate_renewal_check", Priority: 2, MaxDuration: 30 * time.Second},
}

// maxMaintenanceTasksPerCycle caps how many queued tasks a single
// maintenance window executes, mirroring run_self_healing_cycle's
// `tasks_executed < 5` guard.
const maxMaintenanceTasksPerCycle = 5

// criticalServices never recover silently: a recovery attempt (success or
// failure) always produces a notification, mirroring critical_services.
var criticalServices = map[string]bool{
	"influxdb":   true,
	"prometheus": true,
	"grafana":    true,
}

// Orchestrator is the Self-Healing Orchestrator.
type Orchestrator struct {
	containers container.Collaborator
	notifier   *platform.Notifier
	clock      *platform.Clock
	httpClient *http.Client

	maxAttempts        int
	cooldown           time.Duration
	blacklistThreshold int
	logPaths           []string
	logMaxAge          time.Duration
	backupDir          string
	certDirs           []string

	recoveryQueue *platform.Queue[string]

	mu       sync.Mutex
	health   map[string]container.Health
	recovery map[string]*recoveryState
	breakers map[string]*gobreaker.CircuitBreaker[bool]
	stats    Stats
	history  []TaskResult
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithLogRotationPaths overrides the directories log_rotation_cleanup scans.
func WithLogRotationPaths(paths []string) Option {
	return func(o *Orchestrator) { o.logPaths = paths }
}

// WithBackupDir overrides where backup_critical_configs writes archives.
func WithBackupDir(dir string) Option {
	return func(o *Orchestrator) { o.backupDir = dir }
}

// WithCertDirs sets the directories certificate_renewal_check scans for
// per-service cert.pem files (mirroring the SWAG letsencrypt/live layout).
func WithCertDirs(dirs []string) Option {
	return func(o *Orchestrator) { o.certDirs = dirs }
}

// New builds a self-healing orchestrator. maxAttempts and cooldown mirror
// SELF_HEALING_MAX_ATTEMPTS. A service that hits maxAttempts is blacklisted
// for the lifetime of the process: the original's recovery_blacklist is a
// plain set with no expiry, and only an operator can clear it (see
// Unblacklist).
func New(containers container.Collaborator, notifier *platform.Notifier, clock *platform.Clock,
	maxAttempts int, cooldown time.Duration, opts ...Option) *Orchestrator {

	o := &Orchestrator{
		containers:         containers,
		notifier:           notifier,
		clock:              clock,
		httpClient:         &http.Client{Timeout: 10 * time.Second},
		maxAttempts:        maxAttempts,
		cooldown:           cooldown,
		blacklistThreshold: maxAttempts,
		logPaths:           []string{"/var/log"},
		logMaxAge:          30 * 24 * time.Hour,
		backupDir:          "/var/lib/controlplane/backups",
		recoveryQueue:      platform.NewQueue[string](50),
		health:             make(map[string]container.Health),
		recovery:           make(map[string]*recoveryState),
		breakers:           make(map[string]*gobreaker.CircuitBreaker[bool]),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start registers the periodic health check and the maintenance window on
// the shared clock, mirroring run_continuous_orchestration and
// schedule_maintenance_windows.
func (o *Orchestrator) Start(checkInterval time.Duration, maintenanceCron string) error {
	if err := o.clock.Every("selfheal-health-check", checkInterval.String(), func() {
		o.RunHealthCycle(context.Background())
	}); err != nil {
		return err
	}
	return o.clock.AtCron("selfheal-maintenance-window", maintenanceCron, func() {
		o.RunMaintenanceWindow(context.Background())
	})
}

// RunHealthCycle assesses every container and queues recovery attempts for
// anything not healthy, mirroring run_self_healing_cycle's health pass.
func (o *Orchestrator) RunHealthCycle(ctx context.Context) {
	healthList, err := o.containers.ListHealth(ctx)
	if err != nil {
		log.Printf("[SelfHeal] health check failed: %v", err)
		return
	}

	o.mu.Lock()
	for _, h := range healthList {
		o.health[h.Name] = h
	}
	o.mu.Unlock()

	for _, h := range healthList {
		if h.Status == container.StatusHealthy {
			o.mu.Lock()
			if st, ok := o.recovery[h.Name]; ok {
				st.attempts = 0
			}
			o.mu.Unlock()
			continue
		}
		if !o.recoveryQueue.Push(h.Name) {
			log.Printf("[SelfHeal] recovery queue full, dropping recovery request for %s", h.Name)
			continue
		}
		o.attemptRecovery(ctx, h)
		<-o.recoveryQueue.Chan() // the request is handled; free its slot
	}
}

// attemptRecovery chooses a recovery strategy from the container's issues
// and executes it through a per-service circuit breaker, grounded on
// attempt_service_recovery.
func (o *Orchestrator) attemptRecovery(ctx context.Context, h container.Health) {
	o.mu.Lock()
	st, ok := o.recovery[h.Name]
	if !ok {
		st = &recoveryState{}
		o.recovery[h.Name] = st
	}
	if st.blacklisted {
		o.mu.Unlock()
		log.Printf("[SelfHeal] %s is blacklisted from recovery", h.Name)
		return
	}
	if st.attempts >= o.maxAttempts {
		st.blacklisted = true
		o.mu.Unlock()
		log.Printf("[SelfHeal] max recovery attempts reached for %s, blacklisting until an operator clears it", h.Name)
		return
	}
	if !st.lastRecovery.IsZero() && time.Since(st.lastRecovery) < o.cooldown {
		o.mu.Unlock()
		return
	}
	breaker := o.breakerFor(h.Name)
	o.mu.Unlock()

	log.Printf("[SelfHeal] attempting recovery for %s (attempt %d)", h.Name, st.attempts+1)

	recovered, err := breaker.Execute(func() (bool, error) {
		return o.recover(ctx, h)
	})
	success := err == nil && recovered

	o.mu.Lock()
	st.attempts++
	st.lastRecovery = time.Now()
	if success {
		o.stats.SuccessfulRecoveries++
		st.attempts = 0
	} else {
		o.stats.FailedRecoveries++
	}
	o.mu.Unlock()

	if criticalServices[h.Name] {
		o.notifyRecoveryOutcome(h.Name, success, st.attempts)
	}
}

func (o *Orchestrator) breakerFor(name string) *gobreaker.CircuitBreaker[bool] {
	if b, ok := o.breakers[name]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        "selfheal-" + name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     o.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	o.breakers[name] = b
	return b
}

// recover dispatches to the strategy matching the container's issues:
// start if stopped, restart if unhealthy or high-memory, kill-then-start if
// stuck restarting. Mirrors the if/elif chain in attempt_service_recovery.
func (o *Orchestrator) recover(ctx context.Context, h container.Health) (bool, error) {
	switch {
	case hasIssue(h.Issues, "not running"):
		if err := o.containers.Start(ctx, h.Name); err != nil {
			return false, err
		}
		time.Sleep(10 * time.Second)
	case hasIssue(h.Issues, "health check failed"):
		if err := o.containers.Restart(ctx, h.Name); err != nil {
			return false, err
		}
		time.Sleep(15 * time.Second)
	case hasIssue(h.Issues, "memory usage"):
		if err := o.containers.Restart(ctx, h.Name); err != nil {
			return false, err
		}
		time.Sleep(20 * time.Second)
	case hasIssue(h.Issues, "restarting"):
		if err := o.containers.Kill(ctx, h.Name); err != nil {
			return false, err
		}
		time.Sleep(5 * time.Second)
		if err := o.containers.Start(ctx, h.Name); err != nil {
			return false, err
		}
		time.Sleep(15 * time.Second)
	default:
		return false, nil
	}

	healthList, err := o.containers.ListHealth(ctx)
	if err != nil {
		return false, err
	}
	for _, nh := range healthList {
		if nh.Name == h.Name {
			return nh.Status != container.StatusCritical, nil
		}
	}
	return false, nil
}

// Unblacklist clears a service's blacklist status. The blacklist never
// expires on its own (it is session-scoped, mirroring the original's plain
// recovery_blacklist set), so this is the only way a service becomes
// eligible for recovery again short of a process restart.
func (o *Orchestrator) Unblacklist(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if st, ok := o.recovery[name]; ok {
		st.blacklisted = false
		st.attempts = 0
	}
}

func (o *Orchestrator) notifyRecoveryOutcome(name string, success bool, attempts int) {
	if success {
		o.notifier.Dispatch(platform.Event{
			Source:   "selfheal",
			Severity: platform.SeverityInfo,
			Title:    "Service Recovered",
			Message:  "critical service '" + name + "' has been successfully recovered",
			Time:     time.Now(),
		}, nil)
		return
	}
	o.notifier.Dispatch(platform.Event{
		Source:   "selfheal",
		Severity: platform.SeverityCritical,
		Title:    "Recovery Failed",
		Message:  "failed to recover critical service '" + name + "' after " + itoa(attempts) + " attempts",
		Time:     time.Now(),
	}, nil)
}

func hasIssue(issues []string, substr string) bool {
	for _, issue := range issues {
		if strings.Contains(issue, substr) {
			return true
		}
	}
	return false
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Snapshot returns the last observed health for every tracked container,
// enriched with recovery state, for API/dashboard consumers.
func (o *Orchestrator) Snapshot() []HealthSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]HealthSnapshot, 0, len(o.health))
	for name, h := range o.health {
		snap := HealthSnapshot{Health: h}
		if st, ok := o.recovery[name]; ok {
			snap.RecoveryAttempts = st.attempts
			snap.Blacklisted = st.blacklisted
		}
		out = append(out, snap)
	}
	return out
}

// StatsSnapshot returns a copy of the running healing statistics.
func (o *Orchestrator) StatsSnapshot() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// DroppedRecoveries returns how many recovery requests were dropped
// because the bounded recovery queue was full.
func (o *Orchestrator) DroppedRecoveries() uint64 {
	return o.recoveryQueue.Dropped()
}

// History returns the maintenance task execution history, newest last.
func (o *Orchestrator) History() []TaskResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]TaskResult, len(o.history))
	copy(out, o.history)
	return out
}

func (o *Orchestrator) backupRoot() string {
	if o.backupDir == "" {
		return filepath.Join(os.TempDir(), "controlplane-backups")
	}
	return o.backupDir
}
