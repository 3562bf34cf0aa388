package database

import (
	"database/sql"
	"time"
)

// BackupTargetRow is the persisted row shape for one configured backup
// target (backup_targets). BackupType is the independent full/incremental/
// differential/snapshot axis (distinct from Type, which selects how the
// target is captured: filesystem/sqlite/mysql/postgres/influxdb).
type BackupTargetRow struct {
	ID                string
	Name              string
	Type              string
	Path              string
	DSN               string
	Schedule          string
	RetentionDays     int
	StorageClass      string
	BackupType        string
	ExcludePatterns   string // JSON array
	PreCommand        string
	PostCommand       string
	KeepCount         int
	Enabled           bool
	CreatedAt         time.Time
}

// BackupTargetRepository persists backup orchestrator targets.
type BackupTargetRepository struct{}

func NewBackupTargetRepository() *BackupTargetRepository { return &BackupTargetRepository{} }

func (r *BackupTargetRepository) Upsert(t BackupTargetRow) error {
	_, err := DB.Exec(`INSERT INTO backup_targets
		(id, name, type, path, dsn, schedule, retention_days, storage_class, is_enabled,
		 backup_type, exclude_patterns, pre_command, post_command, keep_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, type=excluded.type, path=excluded.path, dsn=excluded.dsn,
			schedule=excluded.schedule, retention_days=excluded.retention_days,
			storage_class=excluded.storage_class, is_enabled=excluded.is_enabled,
			backup_type=excluded.backup_type, exclude_patterns=excluded.exclude_patterns,
			pre_command=excluded.pre_command, post_command=excluded.post_command,
			keep_count=excluded.keep_count`,
		t.ID, t.Name, t.Type, t.Path, t.DSN, t.Schedule, t.RetentionDays, t.StorageClass, boolToInt(t.Enabled),
		t.BackupType, t.ExcludePatterns, t.PreCommand, t.PostCommand, t.KeepCount)
	return err
}

func (r *BackupTargetRepository) GetEnabled() ([]BackupTargetRow, error) {
	rows, err := DB.Query(`SELECT id, name, type, path, dsn, schedule, retention_days, storage_class,
		is_enabled, created_at, backup_type, exclude_patterns, pre_command, post_command, keep_count
		FROM backup_targets WHERE is_enabled = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BackupTargetRow
	for rows.Next() {
		var t BackupTargetRow
		var enabled int
		if err := rows.Scan(&t.ID, &t.Name, &t.Type, &t.Path, &t.DSN, &t.Schedule, &t.RetentionDays,
			&t.StorageClass, &enabled, &t.CreatedAt, &t.BackupType, &t.ExcludePatterns,
			&t.PreCommand, &t.PostCommand, &t.KeepCount); err != nil {
			return nil, err
		}
		t.Enabled = enabled != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

// BackupOperationRow is the persisted row shape for one backup run
// (backup_operations).
type BackupOperationRow struct {
	ID          string
	TargetID    string
	Status      string
	StoragePath string
	SizeBytes   int64
	Checksum    string
	Error       string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Verified    bool
	VerifyError string
}

// BackupOperationRepository persists backup run history.
type BackupOperationRepository struct{}

func NewBackupOperationRepository() *BackupOperationRepository { return &BackupOperationRepository{} }

func (r *BackupOperationRepository) Create(op BackupOperationRow) error {
	_, err := DB.Exec(`INSERT INTO backup_operations
		(id, target_id, status, storage_path, size_bytes, checksum, error, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID, op.TargetID, op.Status, op.StoragePath, op.SizeBytes, op.Checksum, op.Error, op.StartedAt)
	return err
}

func (r *BackupOperationRepository) Finish(id, status, storagePath, checksum, errMsg string, sizeBytes int64, finishedAt time.Time) error {
	_, err := DB.Exec(`UPDATE backup_operations SET status = ?, storage_path = ?, size_bytes = ?,
		checksum = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, storagePath, sizeBytes, checksum, errMsg, finishedAt, id)
	return err
}

// SetVerification records the outcome of the post-capture verification step
// for an already-finished operation.
func (r *BackupOperationRepository) SetVerification(id string, verified bool, verifyError string) error {
	_, err := DB.Exec(`UPDATE backup_operations SET verified = ?, verify_error = ? WHERE id = ?`,
		boolToInt(verified), verifyError, id)
	return err
}

func (r *BackupOperationRepository) RecentForTarget(targetID string, limit int) ([]BackupOperationRow, error) {
	rows, err := DB.Query(`SELECT id, target_id, status, storage_path, size_bytes, checksum, error,
		started_at, finished_at, verified, verify_error FROM backup_operations WHERE target_id = ?
		ORDER BY started_at DESC LIMIT ?`, targetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOperationRows(rows)
}

// OlderThan returns successful operations for targetID started before cutoff,
// used by calendar-day retention cleanup.
func (r *BackupOperationRepository) OlderThan(targetID string, cutoff time.Time) ([]BackupOperationRow, error) {
	rows, err := DB.Query(`SELECT id, target_id, status, storage_path, size_bytes, checksum, error,
		started_at, finished_at, verified, verify_error FROM backup_operations
		WHERE target_id = ? AND status = 'success' AND started_at < ?`, targetID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOperationRows(rows)
}

// SuccessfulBeyondKeepCount returns successful operations for targetID
// excluding the keepCount most recent ones, used by keep-count retention:
// the floor on how many archives are always kept regardless of age.
func (r *BackupOperationRepository) SuccessfulBeyondKeepCount(targetID string, keepCount int) ([]BackupOperationRow, error) {
	rows, err := DB.Query(`SELECT id, target_id, status, storage_path, size_bytes, checksum, error,
		started_at, finished_at, verified, verify_error FROM backup_operations
		WHERE target_id = ? AND status = 'success'
		ORDER BY started_at DESC LIMIT -1 OFFSET ?`, targetID, keepCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOperationRows(rows)
}

func scanOperationRows(rows *sql.Rows) ([]BackupOperationRow, error) {
	var out []BackupOperationRow
	for rows.Next() {
		var op BackupOperationRow
		var finishedAt sql.NullTime
		var verified int
		if err := rows.Scan(&op.ID, &op.TargetID, &op.Status, &op.StoragePath, &op.SizeBytes,
			&op.Checksum, &op.Error, &op.StartedAt, &finishedAt, &verified, &op.VerifyError); err != nil {
			return nil, err
		}
		op.Verified = verified != 0
		if finishedAt.Valid {
			t := finishedAt.Time
			op.FinishedAt = &t
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

func (r *BackupOperationRepository) Delete(id string) error {
	_, err := DB.Exec(`DELETE FROM backup_operations WHERE id = ?`, id)
	return err
}
