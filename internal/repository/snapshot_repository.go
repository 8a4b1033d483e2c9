package repository

import (
	"database/sql"
	"fmt"
	"time"

	"notchbar/sysmonitor/internal/models"

	"go.uber.org/zap"
)

// SnapshotRepository persists recorded samples
type SnapshotRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, logger *zap.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:     db,
		logger: logger,
	}
}

// Insert writes snapshots in a single transaction
func (r *SnapshotRepository) Insert(snapshots []models.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO snapshots (host_id, session_id, cpu_percent, memory_percent,
			memory_used_bytes, memory_total_bytes, disk_percent, sampled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range snapshots {
		_, err := stmt.Exec(
			s.HostID,
			s.SessionID,
			s.CPUPercent,
			s.MemoryPercent,
			int64(s.MemoryUsedBytes),
			int64(s.MemoryTotalBytes),
			s.DiskPercent,
			s.SampledAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug("Snapshots stored", zap.Int("count", len(snapshots)))
	return nil
}

// Recent returns up to limit snapshots, newest first
func (r *SnapshotRepository) Recent(limit int) ([]models.Snapshot, error) {
	rows, err := r.db.Query(`
		SELECT id, host_id, session_id, cpu_percent, memory_percent,
			memory_used_bytes, memory_total_bytes, disk_percent, sampled_at
		FROM snapshots
		ORDER BY sampled_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]models.Snapshot, 0, limit)
	for rows.Next() {
		var s models.Snapshot
		var used, total int64
		if err := rows.Scan(
			&s.ID,
			&s.HostID,
			&s.SessionID,
			&s.CPUPercent,
			&s.MemoryPercent,
			&used,
			&total,
			&s.DiskPercent,
			&s.SampledAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s.MemoryUsedBytes = uint64(used)
		s.MemoryTotalBytes = uint64(total)
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}

	return snapshots, nil
}

// Count returns the number of stored snapshots
func (r *SnapshotRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

// Prune removes snapshots older than the given duration
func (r *SnapshotRepository) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UnixMilli()
	result, err := r.db.Exec(`DELETE FROM snapshots WHERE sampled_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		r.logger.Info("Pruned old snapshots",
			zap.Int64("count", rowsAffected),
			zap.Duration("older_than", olderThan),
		)
	}
	return rowsAffected, nil
}
