package catalogue

import "fmt"

// raw* types mirror just enough of the Subsonic/Navidrome JSON shape to
// populate this package's catalogue.Track/Album/Artist/Playlist types.
// Kept deliberately minimal: this package treats the wire format as an
// external concern and only transliterates what the wrapper needs.

type rawSong struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Track       uint32 `json:"track"`
	Duration    uint32 `json:"duration"`
	AlbumID     string `json:"albumId"`
	Album       string `json:"album"`
	ArtistID    string `json:"artistId"`
	Artist      string `json:"artist"`
	CoverArt    string `json:"coverArt"`
}

func (s rawSong) toTrack() Track {
	t := Track{
		Title:       s.Title,
		TrackNumber: s.Track,
		Duration:    s.Duration,
		Available:   true,
	}
	if id, err := parseUint32(s.ID); err == nil {
		t.ID = id
	}
	if s.AlbumID != "" {
		t.AlbumID = &s.AlbumID
	}
	if s.Album != "" {
		t.AlbumTitle = &s.Album
	}
	if s.Artist != "" {
		t.ArtistName = &s.Artist
	}
	if aid, err := parseUint32(s.ArtistID); err == nil {
		t.ArtistID = &aid
	}
	if s.CoverArt != "" {
		t.CoverArtURL = &s.CoverArt
	}
	return t
}

type rawAlbum struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Artist   string    `json:"artist"`
	CoverArt string    `json:"coverArt"`
	Song     []rawSong `json:"song"`
}

func (a rawAlbum) toAlbumSimple() AlbumSimple {
	as := AlbumSimple{ID: a.ID, Title: a.Name, ArtistName: a.Artist}
	if a.CoverArt != "" {
		as.CoverURL = &a.CoverArt
	}
	return as
}

func (a rawAlbum) toAlbum() Album {
	al := Album{AlbumSimple: a.toAlbumSimple()}
	for _, s := range a.Song {
		al.Tracks = append(al.Tracks, s.toTrack())
	}
	return al
}

type rawArtist struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	CoverArt string     `json:"coverArt"`
	Album    []rawAlbum `json:"album"`
}

func (a rawArtist) toArtist() Artist {
	artist := Artist{Name: a.Name}
	if id, err := parseUint32(a.ID); err == nil {
		artist.ID = id
	}
	if a.CoverArt != "" {
		artist.CoverURL = &a.CoverArt
	}
	return artist
}

type rawPlaylist struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	CoverArt string    `json:"coverArt"`
	Entry    []rawSong `json:"entry"`
}

func (p rawPlaylist) toPlaylist() Playlist {
	pl := Playlist{Title: p.Name}
	if id, err := parseUint32(p.ID); err == nil {
		pl.ID = id
	}
	if p.CoverArt != "" {
		pl.CoverURL = &p.CoverArt
	}
	for _, s := range p.Entry {
		pl.Tracks = append(pl.Tracks, s.toTrack())
	}
	return pl
}

type rawGenre struct {
	Value string `json:"value"`
}

func parseUint32(s string) (uint32, error) {
	var v uint32
	_, err := fmt.Sscanf(s, "%d", &v)
	if err != nil {
		return 0, err
	}
	return v, nil
}
