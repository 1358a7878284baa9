// Package store persists track and download metadata in SQLite via GORM.
// A Store is the expensive handle the resource pool manages: sessions are
// opened by a pool factory, health-checked with Ping on release, and
// closed on reclamation.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config contains database configuration.
type Config struct {
	// Path is the path to the SQLite database file.
	Path string
}

// Store is one SQLite session.
type Store struct {
	db *gorm.DB
}

// Open connects to the SQLite database at cfg.Path and migrates the
// schema. The parent directory is created if missing.
//
// SQLite pragmas for better concurrent access:
//   - journal_mode(WAL): Write-Ahead Logging for concurrent readers/single writer
//   - busy_timeout(5000): Wait up to 5 seconds when database is locked
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying GORM database connection. Useful for advanced
// queries or testing.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping verifies the session is still usable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ============================================
// TRACK OPERATIONS
// ============================================

// CreateTrack inserts a track, assigning an ID when missing. A duplicate
// file ID fails with ErrDuplicateTrack.
func (s *Store) CreateTrack(ctx context.Context, track *Track) (string, error) {
	if track.ID == "" {
		track.ID = uuid.New().String()
	}
	track.CreatedAt = time.Now()

	if err := s.db.WithContext(ctx).Create(track).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", ErrDuplicateTrack
		}
		return "", err
	}
	return track.ID, nil
}

// GetTrack looks a track up by ID.
func (s *Store) GetTrack(ctx context.Context, id string) (*Track, error) {
	var track Track
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&track).Error
	if err != nil {
		return nil, convertNotFoundError(err, ErrTrackNotFound)
	}
	return &track, nil
}

// GetTrackByFileID looks a track up by its source file ID.
func (s *Store) GetTrackByFileID(ctx context.Context, fileID string) (*Track, error) {
	var track Track
	err := s.db.WithContext(ctx).Where("file_id = ?", fileID).First(&track).Error
	if err != nil {
		return nil, convertNotFoundError(err, ErrTrackNotFound)
	}
	return &track, nil
}

// ListTracksByGroup returns all tracks in a group, newest first.
func (s *Store) ListTracksByGroup(ctx context.Context, groupID string) ([]*Track, error) {
	var tracks []*Track
	if err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at DESC").
		Find(&tracks).Error; err != nil {
		return nil, err
	}
	return tracks, nil
}

// DeleteTrack removes a track by ID and reports whether it existed.
func (s *Store) DeleteTrack(ctx context.Context, id string) (bool, error) {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Track{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ============================================
// DOWNLOAD RECORD OPERATIONS
// ============================================

// RecordDownload inserts one download attempt.
func (s *Store) RecordDownload(ctx context.Context, record *DownloadRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.CreatedAt = time.Now()

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return "", err
	}
	return record.ID, nil
}

// ListRecentDownloads returns the most recent download attempts, newest
// first, capped at limit.
func (s *Store) ListRecentDownloads(ctx context.Context, limit int) ([]*DownloadRecord, error) {
	var records []*DownloadRecord
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountDownloads returns the number of recorded attempts with status.
func (s *Store) CountDownloads(ctx context.Context, status string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&DownloadRecord{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// isUniqueConstraintError checks if the error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// convertNotFoundError converts gorm.ErrRecordNotFound to the appropriate
// domain error.
func convertNotFoundError(err error, notFoundErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr
	}
	return err
}
