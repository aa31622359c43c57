package rfid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartzngrafs/streamtrack/internal/store"
)

type fakeStore struct {
	bindings map[string]store.RFIDReference
}

func newFakeStore() *fakeStore {
	return &fakeStore{bindings: make(map[string]store.RFIDReference)}
}

func (f *fakeStore) AddRFIDBinding(tagID string, ref store.RFIDReference) error {
	f.bindings[tagID] = ref
	return nil
}

func (f *fakeStore) GetRFIDBinding(tagID string) (store.RFIDReference, bool, error) {
	ref, ok := f.bindings[tagID]
	return ref, ok, nil
}

func TestLinkAndResolveAlbum(t *testing.T) {
	s := newFakeStore()
	require.NoError(t, Link(s, "tag-1", Album("album-42")))

	ref, ok, err := Resolve(s, "tag-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, ref.AlbumID)
	assert.Equal(t, "album-42", *ref.AlbumID)
	assert.Nil(t, ref.PlaylistID)
}

func TestLinkAndResolvePlaylist(t *testing.T) {
	s := newFakeStore()
	require.NoError(t, Link(s, "tag-2", Playlist(7)))

	ref, ok, err := Resolve(s, "tag-2")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, ref.PlaylistID)
	assert.EqualValues(t, 7, *ref.PlaylistID)
}

func TestLinkRejectsEmptyTagID(t *testing.T) {
	s := newFakeStore()
	err := Link(s, "", Album("x"))
	assert.ErrorIs(t, err, ErrEmptyTagID)
}

func TestResolveUnknownTagReturnsFalse(t *testing.T) {
	s := newFakeStore()
	_, ok, err := Resolve(s, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLinkOverwritesPriorBinding(t *testing.T) {
	s := newFakeStore()
	require.NoError(t, Link(s, "tag-3", Album("first")))
	require.NoError(t, Link(s, "tag-3", Playlist(9)))

	ref, ok, err := Resolve(s, "tag-3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, ref.AlbumID)
	require.NotNil(t, ref.PlaylistID)
	assert.EqualValues(t, 9, *ref.PlaylistID)
}
