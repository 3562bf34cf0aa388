// Package backup implements the Backup Orchestrator: scheduled,
// mutually-exclusive backup runs per configured target, archived locally,
// on a network share, or uploaded to S3-compatible object storage, with
// retention-based cleanup. Targets are loaded exclusively from
// configuration rather than a hardcoded file list (see DESIGN.md).
package backup

import "time"

// StorageClass selects where a finished archive is written.
type StorageClass string

const (
	StorageLocal   StorageClass = "local"
	StorageNetwork StorageClass = "network"
	StorageCloud   StorageClass = "cloud"
)

// TargetType selects how a target is captured.
type TargetType string

const (
	TargetFilesystem TargetType = "filesystem"
	TargetSQLite     TargetType = "sqlite"
	TargetMySQL      TargetType = "mysql"
	TargetPostgres   TargetType = "postgres"
	TargetInfluxDB   TargetType = "influxdb"
)

// BackupType is the independent full/incremental/differential/snapshot
// axis, separate from TargetType which governs how the target is read. It
// is recorded with the target; capture does not read it, so every run
// archives the target's whole path or dump whatever its BackupType.
type BackupType string

const (
	// BackupFull labels a target as full (everything under its path or dump).
	BackupFull BackupType = "full"
	// BackupIncremental labels a target as incremental (changes since its
	// last successful backup of any type).
	BackupIncremental BackupType = "incremental"
	// BackupDifferential labels a target as differential (changes since its
	// last successful full backup).
	BackupDifferential BackupType = "differential"
	// BackupSnapshot labels a target as a point-in-time copy taken without
	// regard to prior backups (e.g. a filesystem/volume snapshot).
	BackupSnapshot BackupType = "snapshot"
)

// Target is one thing the orchestrator knows how to back up.
type Target struct {
	ID              string
	Name            string
	Type            TargetType
	Path            string
	DSN             string
	Schedule        string
	RetentionDays   int
	StorageClass    StorageClass
	BackupType      BackupType
	ExcludePatterns []string
	PreCommand      string
	PostCommand     string
	// KeepCount, when > 0, is a floor: the most recent KeepCount
	// successful operations are never pruned by retention regardless of
	// RetentionDays.
	KeepCount int
}

// Status is the outcome of one backup run.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Operation is one execution of a target's backup.
type Operation struct {
	ID          string
	TargetID    string
	Status      Status
	StoragePath string
	SizeBytes   int64
	Checksum    string
	Error       string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Verified    bool
	VerifyError string
}
