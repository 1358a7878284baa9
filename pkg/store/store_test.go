package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/pool"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "audiocore.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleTrack(fileID string) *Track {
	return &Track{
		GroupID:   "channel-42",
		FileID:    fileID,
		Title:     "Nocturne",
		Performer: "Unknown",
		Extension: ".mp3",
		Path:      "/downloads/nocturne.mp3",
		Size:      4 << 20,
	}
}

// ============================================================================
// Open
// ============================================================================

func TestOpen(t *testing.T) {
	t.Run("RejectsEmptyPath", func(t *testing.T) {
		_, err := Open(Config{})
		assert.Error(t, err)
	})

	t.Run("CreatesParentDirectory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "audiocore.db")
		s, err := Open(Config{Path: path})
		require.NoError(t, err)
		defer s.Close()

		assert.NoError(t, s.Ping(context.Background()))
	})
}

// ============================================================================
// Tracks
// ============================================================================

func TestTracks(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		s := newTestStore(t)
		id, err := s.CreateTrack(ctx, sampleTrack("file-1"))
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := s.GetTrack(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Nocturne", got.Title)
		assert.Equal(t, "channel-42", got.GroupID)

		byFile, err := s.GetTrackByFileID(ctx, "file-1")
		require.NoError(t, err)
		assert.Equal(t, id, byFile.ID)
	})

	t.Run("DuplicateFileIDRejected", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.CreateTrack(ctx, sampleTrack("file-1"))
		require.NoError(t, err)

		_, err = s.CreateTrack(ctx, sampleTrack("file-1"))
		assert.ErrorIs(t, err, ErrDuplicateTrack)
	})

	t.Run("NotFound", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.GetTrack(ctx, "missing")
		assert.ErrorIs(t, err, ErrTrackNotFound)
	})

	t.Run("ListByGroupNewestFirst", func(t *testing.T) {
		s := newTestStore(t)
		for i, fileID := range []string{"f1", "f2", "f3"} {
			track := sampleTrack(fileID)
			if i == 2 {
				track.GroupID = "other-channel"
			}
			_, err := s.CreateTrack(ctx, track)
			require.NoError(t, err)
			time.Sleep(2 * time.Millisecond)
		}

		tracks, err := s.ListTracksByGroup(ctx, "channel-42")
		require.NoError(t, err)
		require.Len(t, tracks, 2)
		assert.Equal(t, "f2", tracks[0].FileID)
	})

	t.Run("Delete", func(t *testing.T) {
		s := newTestStore(t)
		id, err := s.CreateTrack(ctx, sampleTrack("file-1"))
		require.NoError(t, err)

		deleted, err := s.DeleteTrack(ctx, id)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.DeleteTrack(ctx, id)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

// ============================================================================
// Download records
// ============================================================================

func TestDownloadRecords(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, status := range []string{
		DownloadStatusCompleted, DownloadStatusCompleted, DownloadStatusFailed,
	} {
		_, err := s.RecordDownload(ctx, &DownloadRecord{
			TrackID:    "t1",
			Status:     status,
			DurationMS: 120,
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	records, err := s.ListRecentDownloads(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, DownloadStatusFailed, records[0].Status)

	completed, err := s.CountDownloads(ctx, DownloadStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(2), completed)
}

// ============================================================================
// Pool wiring
// ============================================================================

func TestNewFactory(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Path: filepath.Join(t.TempDir(), "audiocore.db")}
	factory, check, closeFn := NewFactory(cfg)

	p, err := pool.New(ctx, pool.Config[*Store]{
		Name:           "store",
		Factory:        factory,
		Close:          closeFn,
		Check:          check,
		MinSize:        1,
		MaxSize:        2,
		AcquireTimeout: time.Second,
	})
	require.NoError(t, err)
	defer p.CloseAll()

	err = p.WithResource(ctx, func(s *Store) error {
		_, err := s.CreateTrack(ctx, sampleTrack("file-1"))
		return err
	})
	require.NoError(t, err)

	err = p.WithResource(ctx, func(s *Store) error {
		track, err := s.GetTrackByFileID(ctx, "file-1")
		if err != nil {
			return err
		}
		assert.Equal(t, "Nocturne", track.Title)
		return nil
	})
	require.NoError(t, err)
}
