package selfheal

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/millsmillsymills/controlplane/internal/platform"
)

const logRetentionDays = 14

// RunMaintenanceWindow executes up to maxMaintenanceTasksPerCycle scheduled
// maintenance tasks, highest priority first, each bounded by its own
// MaxDuration, recording a TaskResult for each. Mirrors
// run_self_healing_cycle's `queue.sort(key=priority, reverse=True)` +
// `while queue and tasks_executed < 5` loop.
func (o *Orchestrator) RunMaintenanceWindow(ctx context.Context) {
	log.Printf("[SelfHeal] entering maintenance window")

	queue := make([]Task, len(maintenanceTasks))
	copy(queue, maintenanceTasks)
	sort.SliceStable(queue, func(i, j int) bool { return queue[i].Priority > queue[j].Priority })

	tasksExecuted := 0
	for _, task := range queue {
		if tasksExecuted >= maxMaintenanceTasksPerCycle {
			log.Printf("[SelfHeal] maintenance window hit %d-task cap, deferring remaining tasks", maxMaintenanceTasksPerCycle)
			break
		}

		start := time.Now()
		success := o.executeTaskBounded(ctx, task)
		result := TaskResult{Name: task.Name, Success: success, Duration: time.Since(start), ExecutedAt: start}

		o.mu.Lock()
		o.history = append(o.history, result)
		o.stats.MaintenanceTasksComplete++
		o.mu.Unlock()

		if success {
			log.Printf("[SelfHeal] completed maintenance task %s (%s)", task.Name, result.Duration)
		} else {
			log.Printf("[SelfHeal] failed maintenance task %s (%s)", task.Name, result.Duration)
		}
		tasksExecuted++
	}

	log.Printf("[SelfHeal] exiting maintenance window")
}

// executeTaskBounded runs a task under a context timed out at its
// MaxDuration: if the task doesn't finish (or the context it was handed
// doesn't cut its work short), the window moves on and records a failure
// rather than blocking the rest of the queue.
func (o *Orchestrator) executeTaskBounded(ctx context.Context, task Task) bool {
	taskCtx, cancel := context.WithTimeout(ctx, task.MaxDuration)
	defer cancel()

	done := make(chan bool, 1)
	go func() { done <- o.executeTask(taskCtx, task) }()

	select {
	case success := <-done:
		return success
	case <-taskCtx.Done():
		log.Printf("[SelfHeal] maintenance task %s exceeded its %s budget", task.Name, task.MaxDuration)
		return false
	}
}

func (o *Orchestrator) executeTask(ctx context.Context, task Task) bool {
	switch task.Name {
	case "docker_system_cleanup":
		return o.dockerSystemCleanup(ctx)
	case "log_rotation_cleanup":
		return o.logRotationCleanup()
	case "health_check_validation":
		return o.healthCheckValidation(ctx)
	case "backup_critical_configs":
		return o.backupCriticalConfigs()
	case "security_updates_check":
		return o.securityUpdatesCheck(ctx)
	case "certificate_renewal_check":
		return o.certificateRenewalCheck()
	default:
		log.Printf("[SelfHeal] unknown maintenance task: %s", task.Name)
		return false
	}
}

func (o *Orchestrator) dockerSystemCleanup(ctx context.Context) bool {
	report, err := o.containers.SystemCleanup(ctx)
	if err != nil {
		log.Printf("[SelfHeal] docker system cleanup failed: %v", err)
		return false
	}
	log.Printf("[SelfHeal] docker cleanup: %d containers, %d images, %d networks, %d volumes removed, %.1f MB reclaimed",
		report.ContainersRemoved, report.ImagesRemoved, report.NetworksRemoved, report.VolumesRemoved, report.SpaceReclaimedMB)
	return true
}

// logRotationCleanup removes log files older than logRetentionDays under
// each configured log directory, mirroring log_rotation_cleanup's
// rglob('*.log*') walk.
func (o *Orchestrator) logRotationCleanup() bool {
	cutoff := time.Now().Add(-logRetentionDays * 24 * time.Hour)
	var filesRemoved int
	var spaceFreed int64

	for _, dir := range o.logPaths {
		_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if !isLogFile(d.Name()) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.ModTime().Before(cutoff) {
				if rmErr := os.Remove(path); rmErr == nil {
					filesRemoved++
					spaceFreed += info.Size()
				}
			}
			return nil
		})
	}

	log.Printf("[SelfHeal] log cleanup: %d files removed, %.1f MB freed", filesRemoved, float64(spaceFreed)/(1024*1024))
	return true
}

func isLogFile(name string) bool {
	for i := 0; i < len(name)-3; i++ {
		if name[i:i+4] == ".log" {
			return true
		}
	}
	return false
}

// healthCheckValidation probes every configured health endpoint, mirroring
// health_check_validation's requests.get loop.
func (o *Orchestrator) healthCheckValidation(ctx context.Context) bool {
	var failures []string
	for _, ep := range defaultEndpoints {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", ep.Name, err))
			continue
		}
		resp, err := o.httpClient.Do(req)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", ep.Name, err))
			continue
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
			failures = append(failures, fmt.Sprintf("%s: HTTP %d", ep.Name, resp.StatusCode))
		}
	}

	if len(failures) > 0 {
		log.Printf("[SelfHeal] health check failures: %v", failures)
		return false
	}
	log.Printf("[SelfHeal] all health checks passed")
	return true
}

// backupCriticalConfigs tars and gzips every directory in the log rotation
// path list (o.logPaths, set by WithLogRotationPaths) into a timestamped
// archive under the orchestrator's backup directory. There is no separate
// list of config paths and no hardcoded file list.
func (o *Orchestrator) backupCriticalConfigs() bool {
	if len(o.logPaths) == 0 {
		return true
	}
	dir := o.backupRoot()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[SelfHeal] backup_critical_configs: mkdir failed: %v", err)
		return false
	}

	archivePath := filepath.Join(dir, fmt.Sprintf("maintenance_backup_%s.tar.gz", time.Now().Format("20060102_150405")))
	f, err := os.Create(archivePath)
	if err != nil {
		log.Printf("[SelfHeal] backup_critical_configs: create failed: %v", err)
		return false
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	backedUp := 0
	for _, path := range o.logPaths {
		if err := addToTar(tw, path); err == nil {
			backedUp++
		}
	}

	log.Printf("[SelfHeal] backed up %d paths to %s", backedUp, archivePath)
	return true
}

func addToTar(tw *tar.Writer, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return nil
		}
		hdr.Name = path
		if err := tw.WriteHeader(hdr); err != nil {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()
		_, _ = io.Copy(tw, f)
		return nil
	})
}

// securityUpdatesCheck lists the containers and logs how many it reviewed.
// It does not pull images or compare digests, so it does not detect stale
// images; it fails only when the container list cannot be read.
func (o *Orchestrator) securityUpdatesCheck(ctx context.Context) bool {
	healthList, err := o.containers.ListHealth(ctx)
	if err != nil {
		log.Printf("[SelfHeal] security_updates_check failed: %v", err)
		return false
	}
	log.Printf("[SelfHeal] security_updates_check reviewed %d containers", len(healthList))
	return true
}

// certRenewalWarningWindow mirrors certificate_renewal_check's warning_days.
const certRenewalWarningWindow = 30 * 24 * time.Hour

// certificateRenewalCheck scans each configured certificate directory for a
// cert.pem, parses its expiry with crypto/x509 (no shell-out to openssl
// needed in Go), and notifies when any certificate expires within
// certRenewalWarningWindow. Mirrors certificate_renewal_check's SWAG
// directory walk; if no certificate directories are configured, there is
// nothing to check and the task reports success.
func (o *Orchestrator) certificateRenewalCheck() bool {
	if len(o.certDirs) == 0 {
		log.Printf("[SelfHeal] no certificate directories configured, skipping renewal check")
		return true
	}

	var expiring []string
	for _, dir := range o.certDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			certPath := filepath.Join(dir, entry.Name(), "cert.pem")
			expiresAt, err := certExpiry(certPath)
			if err != nil {
				continue
			}
			if time.Until(expiresAt) <= certRenewalWarningWindow {
				expiring = append(expiring, fmt.Sprintf("%s (expires %s)", entry.Name(), expiresAt.Format("2006-01-02")))
			}
		}
	}

	if len(expiring) > 0 {
		log.Printf("[SelfHeal] certificates expiring soon: %v", expiring)
		o.notifier.Dispatch(platform.Event{
			Source:   "selfheal",
			Severity: platform.SeverityMedium,
			Title:    "Certificates Expiring",
			Message:  fmt.Sprintf("%d certificate(s) expire within %d days: %v", len(expiring), int(certRenewalWarningWindow.Hours()/24), expiring),
			Time:     time.Now(),
		}, nil)
		return true
	}
	log.Printf("[SelfHeal] all certificates valid")
	return true
}

// certExpiry reads a PEM certificate file and returns its NotAfter time.
func certExpiry(path string) (time.Time, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return time.Time{}, fmt.Errorf("no PEM block found in %s", path)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return time.Time{}, err
	}
	return cert.NotAfter, nil
}
