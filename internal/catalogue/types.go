// Package catalogue wraps the remote streaming catalogue's HTTP API behind
// a lazily-constructed, cache-backed client.
package catalogue

// AudioQuality is the closed, ordered enum of stream qualities the
// catalogue can serve, persisted as an integer by the Persistent Store.
type AudioQuality int

const (
	Mp3 AudioQuality = iota
	CD
	HiRes96
	HiRes192
)

func (q AudioQuality) String() string {
	switch q {
	case Mp3:
		return "mp3"
	case CD:
		return "cd"
	case HiRes96:
		return "hi-res96"
	case HiRes192:
		return "hi-res192"
	default:
		return "unknown"
	}
}

// ParseAudioQuality parses the CLI/config-file spelling of a quality level.
func ParseAudioQuality(s string) (AudioQuality, bool) {
	switch s {
	case "mp3":
		return Mp3, true
	case "cd":
		return CD, true
	case "hi-res96", "hires96":
		return HiRes96, true
	case "hi-res192", "hires192":
		return HiRes192, true
	default:
		return 0, false
	}
}

// Track is the catalogue's view of a single playable item. Field-for-field
// per original_source/qobuz-player-models/src/lib.rs, transliterated into
// Go with pointer fields standing in for Rust Option<T>.
type Track struct {
	ID              uint32
	Title           string
	TrackNumber     uint32
	Explicit        bool
	HiresAvailable  bool
	Available       bool
	Duration        uint32
	CoverArtURL     *string
	ArtistName      *string
	ArtistID        *uint32
	AlbumTitle      *string
	AlbumID         *string
	PlaylistTrackID *uint64
}

// AlbumSimple is the compact album representation used in listings.
type AlbumSimple struct {
	ID       string
	Title    string
	ArtistName string
	CoverURL *string
}

// Album is the full album representation with its track listing.
type Album struct {
	AlbumSimple
	Tracks []Track
}

// Artist is the compact artist representation used in listings.
type Artist struct {
	ID   uint32
	Name string
	CoverURL *string
}

// ArtistPage is the full artist representation: top tracks plus albums.
type ArtistPage struct {
	Artist
	TopTracks []Track
	Albums    []AlbumSimple
}

// Playlist is a user or curated playlist.
type Playlist struct {
	ID       uint32
	Title    string
	CoverURL *string
	Tracks   []Track
}

// Genre is a catalogue genre/category used to filter featured content.
type Genre struct {
	ID   uint32
	Name string
}

// SearchResults aggregates a free-text search across entity kinds.
type SearchResults struct {
	Albums  []AlbumSimple
	Artists []Artist
	Tracks  []Track
}

// Favorites aggregates the user's library: everything the "library" cache
// entry memoises in one shot.
type Favorites struct {
	Albums    []AlbumSimple
	Artists   []Artist
	Playlists []Playlist
	Tracks    []Track
}
