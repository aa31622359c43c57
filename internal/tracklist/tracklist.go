// Package tracklist implements the ordered queue of tracks with a "current
// index" cursor that the Playback Engine drives. Exactly one track is
// Playing at any time a non-empty tracklist has a valid cursor; all others
// are Played (before the cursor) or Unplayed (after).
package tracklist

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Status is a track's playback status within a tracklist.
type Status int

const (
	Unplayed Status = iota
	Playing
	Played
	Unplayable
)

// Track is one playable item. Duration is in whole seconds; the engine
// must never attempt to play a track with Duration <= 0.
type Track struct {
	ID              uint32
	Title           string
	TrackNumber     uint32
	Explicit        bool
	HiresAvailable  bool
	Available       bool
	Status          Status
	Duration        uint32
	CoverArtURL     *string
	ArtistName      *string
	ArtistID        *uint32
	AlbumTitle      *string
	AlbumID         *string
	PlaylistTrackID *uint64
}

// OriginKind tags why a Tracklist exists; affects only observable metadata.
type OriginKind int

const (
	OriginSingle OriginKind = iota
	OriginAlbum
	OriginPlaylist
	OriginTopTracks
)

// Origin describes the tagged reason a Tracklist was built.
type Origin struct {
	Kind OriginKind

	// Single
	SingleTrackTitle string
	SingleAlbumID    *string
	SingleCoverURL   *string

	// Album
	AlbumTitle string
	AlbumID    string
	AlbumCover *string

	// Playlist
	PlaylistTitle string
	PlaylistID    uint32
	PlaylistCover *string

	// TopTracks
	ArtistName string
	ArtistID   uint32
	ArtistCover *string
}

// Tracklist is the ordered queue plus cursor the engine owns exclusively.
type Tracklist struct {
	Tracks         []Track
	CurrentPosition int
	Origin         Origin
}

// New returns an empty Tracklist with the given origin.
func New(origin Origin) Tracklist {
	return Tracklist{Origin: origin}
}

// Empty reports whether the tracklist has no tracks.
func (t *Tracklist) Empty() bool {
	return len(t.Tracks) == 0
}

// CurrentTrack returns the track at the cursor if it is marked Playing;
// after an out-of-range SkipToTrack or a Reset there is none.
func (t *Tracklist) CurrentTrack() (*Track, bool) {
	if t.Empty() || t.CurrentPosition < 0 || t.CurrentPosition >= len(t.Tracks) {
		return nil, false
	}
	if t.Tracks[t.CurrentPosition].Status != Playing {
		return nil, false
	}
	return &t.Tracks[t.CurrentPosition], true
}

// NextTrack returns the track immediately after the cursor, if any.
func (t *Tracklist) NextTrack() (*Track, bool) {
	i := t.CurrentPosition + 1
	if i < 0 || i >= len(t.Tracks) {
		return nil, false
	}
	return &t.Tracks[i], true
}

// SkipToTrack moves the cursor to index i. If i is a valid index the track
// there becomes Playing and statuses before/after are reset to
// Played/Unplayed respectively; otherwise the cursor is reset to "no
// Playing track" (CurrentPosition set to 0, no track marked Playing).
func (t *Tracklist) SkipToTrack(i int) {
	if i < 0 || i >= len(t.Tracks) {
		t.CurrentPosition = 0
		for idx := range t.Tracks {
			if t.Tracks[idx].Status == Playing {
				t.Tracks[idx].Status = Unplayed
			}
		}
		return
	}

	for idx := range t.Tracks {
		switch {
		case idx < i:
			t.Tracks[idx].Status = Played
		case idx == i:
			t.Tracks[idx].Status = Playing
		default:
			t.Tracks[idx].Status = Unplayed
		}
	}
	t.CurrentPosition = i
}

// Reset clears the Playing marker and resets the cursor to 0, used when the
// tracklist runs out of tracks to play (track-finished with no next track).
func (t *Tracklist) Reset() {
	for idx := range t.Tracks {
		t.Tracks[idx].Status = Unplayed
	}
	t.CurrentPosition = 0
}

// Append adds track to the end of the queue.
func (t *Tracklist) Append(track Track) {
	t.Tracks = append(t.Tracks, track)
}

// InsertAfterCurrent inserts track immediately after the current position,
// used by PlayTrackNext.
func (t *Tracklist) InsertAfterCurrent(track Track) {
	i := t.CurrentPosition + 1
	if i > len(t.Tracks) {
		i = len(t.Tracks)
	}
	t.Tracks = append(t.Tracks, Track{})
	copy(t.Tracks[i+1:], t.Tracks[i:])
	t.Tracks[i] = track
}

// RemoveAt removes the track at index i. Behaviour at i == CurrentPosition
// is the caller's responsibility (the engine performs an implicit Next
// first); this method only performs the mechanical removal and cursor
// bookkeeping for indices that are not the current one.
func (t *Tracklist) RemoveAt(i int) {
	if i < 0 || i >= len(t.Tracks) {
		return
	}
	t.Tracks = append(t.Tracks[:i], t.Tracks[i+1:]...)
	if i < t.CurrentPosition {
		t.CurrentPosition--
	}
	if t.CurrentPosition >= len(t.Tracks) {
		t.CurrentPosition = len(t.Tracks) - 1
	}
	if t.CurrentPosition < 0 {
		t.CurrentPosition = 0
	}
}

// Reorder applies permutation (permutation[newIndex] = oldIndex) to the
// queue. The identity permutation is a no-op. Unlike the original this
// implementation is based on, the Playing track's identity is tracked
// explicitly across the permutation and the cursor is relocated to wherever
// that track lands, so the Playing track never silently stops being
// Playing (see DESIGN.md Open Question 2). Statuses are then reset around
// the new cursor to Played/Unplayed, as SkipToTrack does.
func (t *Tracklist) Reorder(permutation []int) error {
	if len(permutation) != len(t.Tracks) {
		return fmt.Errorf("tracklist: reorder permutation length %d != tracklist length %d", len(permutation), len(t.Tracks))
	}

	seen := make([]bool, len(t.Tracks))
	identity := true
	for newIdx, oldIdx := range permutation {
		if oldIdx < 0 || oldIdx >= len(t.Tracks) || seen[oldIdx] {
			return fmt.Errorf("tracklist: invalid reorder permutation")
		}
		seen[oldIdx] = true
		if newIdx != oldIdx {
			identity = false
		}
	}
	if identity {
		return nil
	}

	newTracks := make([]Track, len(t.Tracks))
	newCurrent := t.CurrentPosition
	for newIdx, oldIdx := range permutation {
		newTracks[newIdx] = t.Tracks[oldIdx]
		if oldIdx == t.CurrentPosition {
			newCurrent = newIdx
		}
	}
	t.Tracks = newTracks
	t.CurrentPosition = newCurrent
	if t.Tracks[newCurrent].Status == Playing {
		t.SkipToTrack(newCurrent)
	}
	return nil
}

// Blob returns an opaque serialised form suitable for the Persistent Store
// Gateway's tracklist snapshot column. gob is used because the only
// requirement is round-trip equivalence within this process's own types,
// not a cross-language wire format (see DESIGN.md).
func (t *Tracklist) Blob() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(t); err != nil {
		return nil, fmt.Errorf("tracklist: encode blob: %w", err)
	}
	return buf.Bytes(), nil
}

// FromBlob decodes a Tracklist previously produced by Blob.
func FromBlob(b []byte) (Tracklist, error) {
	var t Tracklist
	if len(b) == 0 {
		return t, nil
	}
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&t); err != nil {
		return t, fmt.Errorf("tracklist: decode blob: %w", err)
	}
	return t, nil
}
