package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/chartzngrafs/streamtrack/internal/tracklist"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "streamtrack.db"), logrus.NewEntry(logrus.New()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestVolumeRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SetVolume(0.42))
	v, err := s.GetVolume()
	require.NoError(t, err)
	require.InDelta(t, 0.42, v, 0.0001)
}

func TestTracklistRoundTrip(t *testing.T) {
	s := openTestStore(t)

	tl := tracklist.New(tracklist.Origin{Kind: tracklist.OriginAlbum, AlbumTitle: "X", AlbumID: "1"})
	tl.Append(tracklist.Track{ID: 1, Title: "A", Duration: 10, Available: true})
	tl.SkipToTrack(0)

	require.NoError(t, s.SetTracklist(tl))
	got, err := s.GetTracklist()
	require.NoError(t, err)
	require.Equal(t, tl, got)
}

func TestConfigurationClampsOnWrite(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SetConfiguration(Configuration{
		TimeStretchRatio: 10,
		PitchSemitones:   100,
		PitchCents:       1000,
	}))

	cfg, err := s.GetConfiguration()
	require.NoError(t, err)
	require.Equal(t, 2.0, cfg.TimeStretchRatio)
	require.Equal(t, 12, cfg.PitchSemitones)
	require.Equal(t, 100, cfg.PitchCents)
}

func TestCleanUpCacheEntriesReturnsEvictedPaths(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	require.NoError(t, s.UpsertCacheEntry("/cache/old", now.Add(-48*time.Hour)))
	require.NoError(t, s.UpsertCacheEntry("/cache/new", now))

	evicted, err := s.CleanUpCacheEntries(24*time.Hour, now)
	require.NoError(t, err)
	require.Equal(t, []string{"/cache/old"}, evicted)
}

func TestRFIDBindingRoundTrip(t *testing.T) {
	s := openTestStore(t)
	albumID := "album-1"

	require.NoError(t, s.AddRFIDBinding("tag-1", RFIDReference{Kind: RFIDAlbum, AlbumID: &albumID}))

	ref, ok, err := s.GetRFIDBinding("tag-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, RFIDAlbum, ref.Kind)
	require.Equal(t, albumID, *ref.AlbumID)
}
