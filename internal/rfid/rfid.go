// Package rfid is the interface-only bridge between a tag id and the
// Album/Playlist it should resume. Scanning hardware and tag-read polling
// are outside this module's scope; callers (e.g. a udev or serial reader
// running as an independent front-end) supply the tag id they most
// recently observed.
package rfid

import (
	"errors"
	"fmt"

	"github.com/chartzngrafs/streamtrack/internal/store"
)

// ErrEmptyTagID is returned by Link when tagID is the empty string.
var ErrEmptyTagID = errors.New("rfid: tag id must not be empty")

// Reference names the entity a tag should resume: exactly one of AlbumID
// or PlaylistID is set.
type Reference struct {
	AlbumID    *string
	PlaylistID *uint32
}

// Album builds a Reference pointing at an album.
func Album(id string) Reference {
	return Reference{AlbumID: &id}
}

// Playlist builds a Reference pointing at a playlist.
func Playlist(id uint32) Reference {
	return Reference{PlaylistID: &id}
}

// bindingStore is the subset of the Persistent Store Gateway this package
// depends on; satisfied by *store.Store.
type bindingStore interface {
	AddRFIDBinding(tagID string, ref store.RFIDReference) error
	GetRFIDBinding(tagID string) (store.RFIDReference, bool, error)
}

// Link persists ref as tagID's binding, overwriting any prior binding for
// that tag. Binds the most recently seen tag id to a reference; scanning
// itself happens outside this package.
func Link(s bindingStore, tagID string, ref Reference) error {
	if tagID == "" {
		return ErrEmptyTagID
	}

	row := store.RFIDReference{AlbumID: ref.AlbumID, PlaylistID: ref.PlaylistID}
	switch {
	case ref.AlbumID != nil:
		row.Kind = store.RFIDAlbum
	case ref.PlaylistID != nil:
		row.Kind = store.RFIDPlaylist
	default:
		return fmt.Errorf("rfid: reference must name an album or a playlist")
	}

	if err := s.AddRFIDBinding(tagID, row); err != nil {
		return fmt.Errorf("rfid: linking tag %q: %w", tagID, err)
	}
	return nil
}

// Resolve looks up the reference bound to tagID, if any.
func Resolve(s bindingStore, tagID string) (Reference, bool, error) {
	row, ok, err := s.GetRFIDBinding(tagID)
	if err != nil || !ok {
		return Reference{}, ok, err
	}
	return Reference{AlbumID: row.AlbumID, PlaylistID: row.PlaylistID}, true, nil
}
