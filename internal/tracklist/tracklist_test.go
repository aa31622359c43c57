package tracklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackFixture(id uint32, title string, duration uint32) Track {
	return Track{ID: id, Title: title, Duration: duration, Available: true}
}

func TestSkipToTrackValidIndexMarksPlayingAndResetsNeighbours(t *testing.T) {
	tl := New(Origin{Kind: OriginSingle})
	tl.Append(trackFixture(1, "A", 10))
	tl.Append(trackFixture(2, "B", 10))
	tl.Append(trackFixture(3, "C", 10))

	tl.SkipToTrack(1)

	assert.Equal(t, Played, tl.Tracks[0].Status)
	assert.Equal(t, Playing, tl.Tracks[1].Status)
	assert.Equal(t, Unplayed, tl.Tracks[2].Status)
	assert.Equal(t, 1, tl.CurrentPosition)
}

func TestSkipToTrackOutOfRangeResetsCursor(t *testing.T) {
	tl := New(Origin{Kind: OriginSingle})
	tl.Append(trackFixture(1, "A", 10))
	tl.SkipToTrack(0)

	tl.SkipToTrack(5)

	assert.Equal(t, 0, tl.CurrentPosition)
	_, ok := tl.CurrentTrack()
	assert.False(t, ok)
}

func TestRemoveAtAdjustsCursorBeforeCurrent(t *testing.T) {
	tl := New(Origin{Kind: OriginSingle})
	tl.Append(trackFixture(1, "A", 10))
	tl.Append(trackFixture(2, "B", 10))
	tl.Append(trackFixture(3, "C", 10))
	tl.SkipToTrack(2)

	tl.RemoveAt(0)

	require.Len(t, tl.Tracks, 2)
	assert.Equal(t, 1, tl.CurrentPosition)
	cur, ok := tl.CurrentTrack()
	require.True(t, ok)
	assert.Equal(t, uint32(3), cur.ID)
}

func TestReorderIdentityPermutationIsNoOp(t *testing.T) {
	tl := New(Origin{Kind: OriginSingle})
	tl.Append(trackFixture(1, "A", 10))
	tl.Append(trackFixture(2, "B", 10))
	tl.SkipToTrack(1)
	before := tl

	err := tl.Reorder([]int{0, 1})

	require.NoError(t, err)
	assert.Equal(t, before, tl)
}

func TestReorderFollowsPlayingTrackToItsNewIndex(t *testing.T) {
	tl := New(Origin{Kind: OriginSingle})
	tl.Append(trackFixture(1, "A", 10))
	tl.Append(trackFixture(2, "B", 10))
	tl.Append(trackFixture(3, "C", 10))
	tl.SkipToTrack(0) // A is Playing

	// new_order[newIdx] = oldIdx: move A (old index 0) to new index 2.
	err := tl.Reorder([]int{1, 2, 0})

	require.NoError(t, err)
	cur, ok := tl.CurrentTrack()
	require.True(t, ok)
	assert.Equal(t, uint32(1), cur.ID)
	assert.Equal(t, Playing, cur.Status)
	assert.Equal(t, 2, tl.CurrentPosition)
}

func TestBlobRoundTrip(t *testing.T) {
	tl := New(Origin{Kind: OriginAlbum, AlbumTitle: "Album", AlbumID: "abc"})
	tl.Append(trackFixture(1, "A", 10))
	tl.SkipToTrack(0)

	blob, err := tl.Blob()
	require.NoError(t, err)

	restored, err := FromBlob(blob)
	require.NoError(t, err)
	assert.Equal(t, tl, restored)
}
