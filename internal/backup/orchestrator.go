package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/millsmillsymills/controlplane/internal/database"
	"github.com/millsmillsymills/controlplane/internal/platform"
)

// storageSizeMargin is the free-space multiplier a candidate storage
// location must clear before it's considered a fit for an archive of a
// given size: free space must be at least 1.2 times the archive size.
const storageSizeMargin = 1.2

// storageLocation is one declared place a backup archive can land, with a
// fixed selection priority (ascending: tried first). dir is empty for
// locations whose free space can't be statted (cloud object storage),
// which always qualify since there's nothing local to run out of.
type storageLocation struct {
	class    StorageClass
	priority int
	dir      string
	store    Store
}

// Orchestrator is the Backup Orchestrator: it schedules a backup run
// per target on the shared clock, runs at most one backup per target at a
// time, archives the result to the highest-priority storage location with
// room for it (the target's configured storage class is the fallback when
// none has), and enforces per-target retention.
type Orchestrator struct {
	targetRepo *database.BackupTargetRepository
	opRepo     *database.BackupOperationRepository
	notifier   *platform.Notifier
	clock      *platform.Clock

	workDir    string
	localDir   string
	networkDir string
	cloud      *CloudStore
	locations  []storageLocation

	queue *platform.Queue[Target]

	mu     sync.Mutex
	busy   map[string]bool
	targets map[string]Target
}

// New builds a backup orchestrator. cloud may be nil when no cloud
// credentials are configured; targets using StorageCloud will then fail
// fast with a clear error rather than panicking.
func New(notifier *platform.Notifier, clock *platform.Clock, workDir, localDir, networkDir string, cloud *CloudStore) *Orchestrator {
	o := &Orchestrator{
		targetRepo: database.NewBackupTargetRepository(),
		opRepo:     database.NewBackupOperationRepository(),
		notifier:   notifier,
		clock:      clock,
		workDir:    workDir,
		localDir:   localDir,
		networkDir: networkDir,
		cloud:      cloud,
		queue:      platform.NewQueue[Target](100),
		busy:       make(map[string]bool),
		targets:    make(map[string]Target),
	}
	o.locations = []storageLocation{
		{class: StorageLocal, priority: 1, dir: localDir, store: &LocalStore{Dir: localDir}},
		{class: StorageNetwork, priority: 2, dir: networkDir, store: &NetworkStore{MountPath: networkDir}},
	}
	if cloud != nil {
		o.locations = append(o.locations, storageLocation{class: StorageCloud, priority: 3, store: cloud})
	}
	sort.Slice(o.locations, func(i, j int) bool { return o.locations[i].priority < o.locations[j].priority })
	return o
}

// LoadTargets registers every target from configuration, persists it, and
// schedules its backup on the shared clock according to its own schedule
// string. Targets come exclusively from configuration, never a hardcoded
// path list (see DESIGN.md).
func (o *Orchestrator) LoadTargets(targets []Target) error {
	for _, t := range targets {
		if err := o.targetRepo.Upsert(toRow(t)); err != nil {
			return fmt.Errorf("backup: persisting target %s: %w", t.ID, err)
		}
		o.mu.Lock()
		o.targets[t.ID] = t
		o.mu.Unlock()

		target := t
		jobName := "backup-" + t.ID
		var err error
		if len(t.Schedule) > 0 && t.Schedule[0] == '@' {
			err = o.clock.Every(jobName, t.Schedule[len("@every "):], func() { o.Run(context.Background(), target) })
		} else {
			err = o.clock.AtCron(jobName, t.Schedule, func() { o.Run(context.Background(), target) })
		}
		if err != nil {
			return fmt.Errorf("backup: scheduling target %s: %w", t.ID, err)
		}
	}
	return nil
}

// Run executes one backup for target, skipping if a run for the same
// target is already in progress (mutual exclusion per target).
func (o *Orchestrator) Run(ctx context.Context, t Target) {
	o.mu.Lock()
	if o.busy[t.ID] {
		o.mu.Unlock()
		log.Printf("[Backup] skipping %s: previous run still in progress", t.ID)
		return
	}
	o.busy[t.ID] = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.busy[t.ID] = false
		o.mu.Unlock()
	}()

	if !o.queue.Push(t) {
		log.Printf("[Backup] backup queue full, dropping run for %s", t.ID)
		return
	}
	defer func() { <-o.queue.Chan() }() // free this run's slot when it ends

	opID := uuid.NewString()
	started := time.Now()
	if err := o.opRepo.Create(database.BackupOperationRow{
		ID: opID, TargetID: t.ID, Status: string(StatusRunning), StartedAt: started,
	}); err != nil {
		log.Printf("[Backup] failed to record operation start for %s: %v", t.ID, err)
	}

	archivePath, size, checksum, err := capture(ctx, t, o.workDir)
	if err != nil {
		o.finish(opID, t, "", 0, "", err)
		return
	}

	verifyErr := verifyArchive(archivePath, checksum)
	if verifyErr != nil {
		log.Printf("[Backup] verification failed for %s: %v", t.ID, verifyErr)
	}
	if setErr := o.opRepo.SetVerification(opID, verifyErr == nil, verifyErrString(verifyErr)); setErr != nil {
		log.Printf("[Backup] failed to record verification result for %s: %v", t.ID, setErr)
	}

	store, err := o.storeFor(size, t.StorageClass)
	if err != nil {
		o.finish(opID, t, "", size, checksum, err)
		return
	}

	storagePath, err := store.Put(ctx, archivePath, fmt.Sprintf("%s_%s.tar.gz", t.ID, started.Format("20060102_150405")))
	o.finish(opID, t, storagePath, size, checksum, err)
}

// storeFor picks the highest-priority declared storage location with at
// least storageSizeMargin times size free, falling back (with a warning)
// to the target's configured default class when nothing qualifies.
func (o *Orchestrator) storeFor(size int64, fallback StorageClass) (Store, error) {
	required := int64(float64(size) * storageSizeMargin)

	for _, loc := range o.locations {
		if loc.dir == "" {
			// Free space on an object store isn't knowable up front; it
			// always qualifies.
			return loc.store, nil
		}
		free, err := freeSpace(loc.dir)
		if err != nil {
			continue
		}
		if free >= required {
			return loc.store, nil
		}
	}

	log.Printf("[Backup] no storage location had %d bytes free (need %.1fx archive size), falling back to %s", required, storageSizeMargin, fallback)
	return o.storeForClass(fallback)
}

func (o *Orchestrator) storeForClass(class StorageClass) (Store, error) {
	switch class {
	case StorageLocal:
		return &LocalStore{Dir: o.localDir}, nil
	case StorageNetwork:
		return &NetworkStore{MountPath: o.networkDir}, nil
	case StorageCloud:
		if o.cloud == nil {
			return nil, fmt.Errorf("backup: cloud storage requested but no cloud store configured")
		}
		return o.cloud, nil
	default:
		return &LocalStore{Dir: o.localDir}, nil
	}
}

// freeSpace reports bytes available (not just free, but available to an
// unprivileged writer) on the filesystem containing dir.
func freeSpace(dir string) (int64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return 0, err
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}

func (o *Orchestrator) finish(opID string, t Target, storagePath string, size int64, checksum string, runErr error) {
	finished := time.Now()
	status := StatusSuccess
	errMsg := ""
	if runErr != nil {
		status = StatusFailed
		errMsg = runErr.Error()
	}

	if err := o.opRepo.Finish(opID, string(status), storagePath, checksum, errMsg, size, finished); err != nil {
		log.Printf("[Backup] failed to record operation finish for %s: %v", t.ID, err)
	}

	if runErr != nil {
		log.Printf("[Backup] target %s failed: %v", t.ID, runErr)
		o.notifier.Dispatch(platform.Event{
			Source:   "backup",
			Severity: platform.SeverityHigh,
			Title:    "Backup Failed",
			Message:  fmt.Sprintf("backup target '%s' failed: %v", t.Name, runErr),
			Time:     finished,
		}, nil)
		return
	}

	log.Printf("[Backup] target %s succeeded: %s (%d bytes, sha256=%s)", t.ID, storagePath, size, checksum)
	go o.enforceRetention(t)
}

// enforceRetention deletes successful operations for t that are both older
// than its configured retention window AND beyond its KeepCount floor: a
// positive KeepCount always keeps that many most-recent archives regardless
// of age, matching an operator's "keep at least N backups" expectation even
// when RetentionDays alone would have pruned them. Cloud objects are left in
// place: retention there is the storage backend's lifecycle policy, not this
// process's job. For targets whose storage class is local or network the
// archive file is removed along with its bookkeeping row.
func (o *Orchestrator) enforceRetention(t Target) {
	if t.RetentionDays <= 0 {
		return
	}
	cutoff := time.Now().Add(-time.Duration(t.RetentionDays) * 24 * time.Hour)
	old, err := o.opRepo.OlderThan(t.ID, cutoff)
	if err != nil {
		log.Printf("[Backup] retention lookup failed for %s: %v", t.ID, err)
		return
	}

	eligible := old
	if t.KeepCount > 0 {
		beyondFloor, err := o.opRepo.SuccessfulBeyondKeepCount(t.ID, t.KeepCount)
		if err != nil {
			log.Printf("[Backup] keep-count lookup failed for %s: %v", t.ID, err)
			return
		}
		beyondFloorIDs := make(map[string]bool, len(beyondFloor))
		for _, op := range beyondFloor {
			beyondFloorIDs[op.ID] = true
		}
		eligible = eligible[:0]
		for _, op := range old {
			if beyondFloorIDs[op.ID] {
				eligible = append(eligible, op)
			}
		}
	}

	for _, op := range eligible {
		if t.StorageClass == StorageLocal || t.StorageClass == StorageNetwork {
			_ = removeIfExists(op.StoragePath)
		}
		if err := o.opRepo.Delete(op.ID); err != nil {
			log.Printf("[Backup] failed to delete expired operation %s: %v", op.ID, err)
		}
	}
}

func verifyErrString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// DroppedRuns returns how many backup runs were dropped because the
// bounded backup queue was full.
func (o *Orchestrator) DroppedRuns() uint64 {
	return o.queue.Dropped()
}

// Targets returns the currently registered targets.
func (o *Orchestrator) Targets() []Target {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Target, 0, len(o.targets))
	for _, t := range o.targets {
		out = append(out, t)
	}
	return out
}

// History returns recent operations for a target.
func (o *Orchestrator) History(targetID string, limit int) ([]Operation, error) {
	rows, err := o.opRepo.RecentForTarget(targetID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Operation, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromOpRow(row))
	}
	return out, nil
}

func toRow(t Target) database.BackupTargetRow {
	excludeJSON, err := json.Marshal(t.ExcludePatterns)
	if err != nil {
		excludeJSON = []byte("[]")
	}
	backupType := t.BackupType
	if backupType == "" {
		backupType = BackupFull
	}
	return database.BackupTargetRow{
		ID: t.ID, Name: t.Name, Type: string(t.Type), Path: t.Path, DSN: t.DSN,
		Schedule: t.Schedule, RetentionDays: t.RetentionDays, StorageClass: string(t.StorageClass), Enabled: true,
		BackupType: string(backupType), ExcludePatterns: string(excludeJSON),
		PreCommand: t.PreCommand, PostCommand: t.PostCommand, KeepCount: t.KeepCount,
	}
}

func fromOpRow(row database.BackupOperationRow) Operation {
	return Operation{
		ID: row.ID, TargetID: row.TargetID, Status: Status(row.Status), StoragePath: row.StoragePath,
		SizeBytes: row.SizeBytes, Checksum: row.Checksum, Error: row.Error, StartedAt: row.StartedAt,
		FinishedAt: row.FinishedAt, Verified: row.Verified, VerifyError: row.VerifyError,
	}
}

func removeIfExists(path string) error {
	if path == "" {
		return nil
	}
	return removeFile(path)
}
