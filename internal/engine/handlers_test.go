package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartzngrafs/streamtrack/internal/catalogue"
	"github.com/chartzngrafs/streamtrack/internal/tracklist"
)

func strPtr(s string) *string { return &s }

func TestBuildTracklistDropsUnavailableAndZeroDurationTracks(t *testing.T) {
	tracks := []catalogue.Track{
		{ID: 1, Title: "kept", Available: true, Duration: 180},
		{ID: 2, Title: "unavailable", Available: false, Duration: 200},
		{ID: 3, Title: "zero duration", Available: true, Duration: 0},
		{ID: 4, Title: "also kept", Available: true, Duration: 210},
	}

	list := buildTracklist(tracklist.Origin{Kind: tracklist.OriginAlbum, AlbumID: "a1"}, tracks)

	require.Len(t, list.Tracks, 2)
	assert.Equal(t, uint32(1), list.Tracks[0].ID)
	assert.Equal(t, uint32(4), list.Tracks[1].ID)
	assert.Equal(t, "a1", list.Origin.AlbumID)
}

func TestTrackFromCatalogueMapsFields(t *testing.T) {
	artistID := uint32(9)
	t1 := catalogue.Track{
		ID:             5,
		Title:          "Song",
		TrackNumber:    2,
		Explicit:       true,
		HiresAvailable: true,
		Available:      true,
		Duration:       245,
		CoverArtURL:    strPtr("https://example/cover.jpg"),
		ArtistName:     strPtr("Artist"),
		ArtistID:       &artistID,
		AlbumTitle:     strPtr("Album"),
		AlbumID:        strPtr("album-1"),
	}

	got := trackFromCatalogue(t1)

	assert.Equal(t, t1.ID, got.ID)
	assert.Equal(t, t1.Title, got.Title)
	assert.Equal(t, t1.TrackNumber, got.TrackNumber)
	assert.Equal(t, t1.Explicit, got.Explicit)
	assert.Equal(t, t1.HiresAvailable, got.HiresAvailable)
	assert.Equal(t, t1.Duration, got.Duration)
	require.NotNil(t, got.ArtistID)
	assert.Equal(t, artistID, *got.ArtistID)
	assert.Equal(t, tracklist.Unplayed, got.Status)
}

func TestClampRatioBounds(t *testing.T) {
	e := &Engine{}
	assert.Equal(t, 0.5, e.clampRatio(0.1))
	assert.Equal(t, 2.0, e.clampRatio(5.0))
	assert.Equal(t, 1.25, e.clampRatio(1.25))
}

func TestClampIntBounds(t *testing.T) {
	assert.Equal(t, -12, clampInt(-50, -12, 12))
	assert.Equal(t, 12, clampInt(50, -12, 12))
	assert.Equal(t, 3, clampInt(3, -12, 12))
}

func TestShuffleTracksPreservesSetAndLength(t *testing.T) {
	tracks := []catalogue.Track{
		{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5},
	}
	before := map[uint32]int{}
	for _, tr := range tracks {
		before[tr.ID]++
	}

	shuffleTracks(tracks)

	require.Len(t, tracks, 5)
	after := map[uint32]int{}
	for _, tr := range tracks {
		after[tr.ID]++
	}
	assert.Equal(t, before, after)
}
