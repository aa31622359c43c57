package catalogue

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chartzngrafs/streamtrack/internal/apperr"
	"github.com/chartzngrafs/streamtrack/internal/ttlcache"
)

// Cache lifetimes: 1 day default, 7 days for album/similar-artists/
// suggested-albums/genres entries, which change far less often.
const (
	defaultTTL       = 24 * time.Hour
	longTTL          = 7 * 24 * time.Hour
	keyedCacheMaxSize = 1000
)

// Credentials needed to lazily construct the underlying transport.
type Credentials struct {
	BaseURL  string
	Username string
	Password string
}

// Client lazily constructs the underlying HTTP transport on first use (a
// mutex guarantees at-most-one construction) and memoises reads behind
// per-entry TTL caches. Every mutation invalidates the library cache and,
// for playlist edits, the specific playlist entry.
type Client struct {
	log *logrus.Entry

	constructOnce sync.Once
	constructErr  error
	creds         Credentials
	transport     *transport

	libraryCache         *ttlcache.Simple[Favorites]
	featuredAlbumsCache  *ttlcache.Simple[[]AlbumSimple]
	featuredPlaylists    *ttlcache.Simple[[]Playlist]
	genresCache          *ttlcache.Simple[[]Genre]

	albumCache           *ttlcache.Keyed[string, Album]
	artistCache          *ttlcache.Keyed[uint32, ArtistPage]
	playlistCache        *ttlcache.Keyed[uint32, Playlist]
	searchCache          *ttlcache.Keyed[string, SearchResults]
	suggestedAlbumsCache *ttlcache.Keyed[string, []AlbumSimple]
	similarArtistsCache  *ttlcache.Keyed[uint32, []Artist]
}

// New creates a Client that will lazily authenticate with creds on first
// use. Construction never performs network I/O.
func New(creds Credentials, log *logrus.Entry) *Client {
	return &Client{
		log:   log,
		creds: creds,

		libraryCache:        ttlcache.NewSimple[Favorites](defaultTTL),
		featuredAlbumsCache: ttlcache.NewSimple[[]AlbumSimple](defaultTTL),
		featuredPlaylists:   ttlcache.NewSimple[[]Playlist](defaultTTL),
		genresCache:         ttlcache.NewSimple[[]Genre](longTTL),

		albumCache:           ttlcache.NewKeyed[string, Album](longTTL, keyedCacheMaxSize),
		artistCache:          ttlcache.NewKeyed[uint32, ArtistPage](defaultTTL, keyedCacheMaxSize),
		playlistCache:        ttlcache.NewKeyed[uint32, Playlist](defaultTTL, keyedCacheMaxSize),
		searchCache:          ttlcache.NewKeyed[string, SearchResults](defaultTTL, keyedCacheMaxSize),
		suggestedAlbumsCache: ttlcache.NewKeyed[string, []AlbumSimple](longTTL, keyedCacheMaxSize),
		similarArtistsCache:  ttlcache.NewKeyed[uint32, []Artist](longTTL, keyedCacheMaxSize),
	}
}

func (c *Client) ensureConstructed() (*transport, error) {
	c.constructOnce.Do(func() {
		if c.creds.Username == "" || c.creds.BaseURL == "" {
			c.constructErr = apperr.ErrCredentialsMissing
			return
		}
		c.transport = newTransport(c.creds.BaseURL, c.creds.Username, c.creds.Password, 30*time.Second)
		if err := c.transport.ping(); err != nil {
			c.constructErr = fmt.Errorf("catalogue: authenticating: %w", err)
		}
	})
	return c.transport, c.constructErr
}

// Library returns the user's aggregated favorites, cached for defaultTTL.
func (c *Client) Library() (Favorites, error) {
	if v, ok := c.libraryCache.Get(); ok {
		return v, nil
	}
	t, err := c.ensureConstructed()
	if err != nil {
		return Favorites{}, err
	}

	var resp struct {
		Starred2 struct {
			Album  []rawAlbum  `json:"album"`
			Artist []rawArtist `json:"artist"`
			Song   []rawSong   `json:"song"`
		} `json:"starred2"`
	}
	if err := t.get("getStarred2", nil, &resp); err != nil {
		return Favorites{}, err
	}

	fav := Favorites{}
	for _, a := range resp.Starred2.Album {
		fav.Albums = append(fav.Albums, a.toAlbumSimple())
	}
	for _, a := range resp.Starred2.Artist {
		fav.Artists = append(fav.Artists, a.toArtist())
	}
	for _, s := range resp.Starred2.Song {
		fav.Tracks = append(fav.Tracks, s.toTrack())
	}
	c.libraryCache.Set(fav)
	return fav, nil
}

// Album returns the album with the given id, cached for longTTL.
func (c *Client) Album(id string) (Album, error) {
	if v, ok := c.albumCache.Get(id); ok {
		return v, nil
	}
	t, err := c.ensureConstructed()
	if err != nil {
		return Album{}, err
	}

	var resp struct {
		Album rawAlbum `json:"album"`
	}
	if err := t.get("getAlbum", map[string]string{"id": id}, &resp); err != nil {
		return Album{}, err
	}

	album := resp.Album.toAlbum()
	c.albumCache.Set(id, album)
	return album, nil
}

// ArtistPage returns the artist's top tracks and albums, cached for defaultTTL.
func (c *Client) ArtistPage(id uint32) (ArtistPage, error) {
	if v, ok := c.artistCache.Get(id); ok {
		return v, nil
	}
	t, err := c.ensureConstructed()
	if err != nil {
		return ArtistPage{}, err
	}

	var resp struct {
		Artist rawArtist `json:"artist"`
	}
	if err := t.get("getArtist", map[string]string{"id": fmt.Sprint(id)}, &resp); err != nil {
		return ArtistPage{}, err
	}

	page := ArtistPage{Artist: resp.Artist.toArtist()}
	for _, al := range resp.Artist.Album {
		page.Albums = append(page.Albums, al.toAlbumSimple())
	}

	var topResp struct {
		TopSongs struct {
			Song []rawSong `json:"song"`
		} `json:"topSongs"`
	}
	if err := t.get("getTopSongs", map[string]string{"artist": resp.Artist.Name}, &topResp); err == nil {
		for _, s := range topResp.TopSongs.Song {
			page.TopTracks = append(page.TopTracks, s.toTrack())
		}
	}

	c.artistCache.Set(id, page)
	return page, nil
}

// SimilarArtists returns artists similar to id, cached for longTTL. Unlike
// the implementation this is grounded on, the cache is actually populated
// after a successful fetch, fixing an apparent upstream asymmetry where the
// cache was only ever read, never written.
func (c *Client) SimilarArtists(id uint32) ([]Artist, error) {
	if v, ok := c.similarArtistsCache.Get(id); ok {
		return v, nil
	}
	t, err := c.ensureConstructed()
	if err != nil {
		return nil, err
	}

	var resp struct {
		SimilarArtists2 struct {
			Artist []rawArtist `json:"artist"`
		} `json:"similarArtists2"`
	}
	if err := t.get("getSimilarArtists2", map[string]string{"id": fmt.Sprint(id)}, &resp); err != nil {
		return nil, err
	}

	var artists []Artist
	for _, a := range resp.SimilarArtists2.Artist {
		artists = append(artists, a.toArtist())
	}
	c.similarArtistsCache.Set(id, artists)
	return artists, nil
}

// Playlist returns the playlist with the given id, cached for defaultTTL.
func (c *Client) Playlist(id uint32) (Playlist, error) {
	if v, ok := c.playlistCache.Get(id); ok {
		return v, nil
	}
	t, err := c.ensureConstructed()
	if err != nil {
		return Playlist{}, err
	}

	var resp struct {
		Playlist rawPlaylist `json:"playlist"`
	}
	if err := t.get("getPlaylist", map[string]string{"id": fmt.Sprint(id)}, &resp); err != nil {
		return Playlist{}, err
	}

	pl := resp.Playlist.toPlaylist()
	c.playlistCache.Set(id, pl)
	return pl, nil
}

// Search performs a free-text search, cached for defaultTTL per query.
func (c *Client) Search(query string) (SearchResults, error) {
	if v, ok := c.searchCache.Get(query); ok {
		return v, nil
	}
	t, err := c.ensureConstructed()
	if err != nil {
		return SearchResults{}, err
	}

	var resp struct {
		SearchResult3 struct {
			Album  []rawAlbum  `json:"album"`
			Artist []rawArtist `json:"artist"`
			Song   []rawSong   `json:"song"`
		} `json:"searchResult3"`
	}
	if err := t.get("search3", map[string]string{"query": query}, &resp); err != nil {
		return SearchResults{}, err
	}

	results := SearchResults{}
	for _, a := range resp.SearchResult3.Album {
		results.Albums = append(results.Albums, a.toAlbumSimple())
	}
	for _, a := range resp.SearchResult3.Artist {
		results.Artists = append(results.Artists, a.toArtist())
	}
	for _, s := range resp.SearchResult3.Song {
		results.Tracks = append(results.Tracks, s.toTrack())
	}
	c.searchCache.Set(query, results)
	return results, nil
}

// FeaturedAlbums returns catalogue-curated albums, cached for defaultTTL.
func (c *Client) FeaturedAlbums() ([]AlbumSimple, error) {
	if v, ok := c.featuredAlbumsCache.Get(); ok {
		return v, nil
	}
	t, err := c.ensureConstructed()
	if err != nil {
		return nil, err
	}

	var resp struct {
		AlbumList2 struct {
			Album []rawAlbum `json:"album"`
		} `json:"albumList2"`
	}
	if err := t.get("getAlbumList2", map[string]string{"type": "newest"}, &resp); err != nil {
		return nil, err
	}

	var albums []AlbumSimple
	for _, a := range resp.AlbumList2.Album {
		albums = append(albums, a.toAlbumSimple())
	}
	c.featuredAlbumsCache.Set(albums)
	return albums, nil
}

// SuggestedAlbums returns albums suggested from a seed album id, cached for longTTL.
func (c *Client) SuggestedAlbums(seedAlbumID string) ([]AlbumSimple, error) {
	if v, ok := c.suggestedAlbumsCache.Get(seedAlbumID); ok {
		return v, nil
	}
	album, err := c.Album(seedAlbumID)
	if err != nil {
		return nil, err
	}
	t, err := c.ensureConstructed()
	if err != nil {
		return nil, err
	}

	var resp struct {
		AlbumList2 struct {
			Album []rawAlbum `json:"album"`
		} `json:"albumList2"`
	}
	if err := t.get("getAlbumList2", map[string]string{"type": "similar", "artist": album.ArtistName}, &resp); err != nil {
		return nil, err
	}

	var albums []AlbumSimple
	for _, a := range resp.AlbumList2.Album {
		albums = append(albums, a.toAlbumSimple())
	}
	c.suggestedAlbumsCache.Set(seedAlbumID, albums)
	return albums, nil
}

// Genres returns the catalogue's genre list, cached for longTTL.
func (c *Client) Genres() ([]Genre, error) {
	if v, ok := c.genresCache.Get(); ok {
		return v, nil
	}
	t, err := c.ensureConstructed()
	if err != nil {
		return nil, err
	}

	var resp struct {
		Genres struct {
			Genre []rawGenre `json:"genre"`
		} `json:"genres"`
	}
	if err := t.get("getGenres", nil, &resp); err != nil {
		return nil, err
	}

	var genres []Genre
	for i, g := range resp.Genres.Genre {
		genres = append(genres, Genre{ID: uint32(i), Name: g.Value})
	}
	c.genresCache.Set(genres)
	return genres, nil
}

// Track resolves a single track's metadata by id, uncached: it backs the
// Playback Engine's PlayTrack command, which (unlike PlayAlbum/PlayPlaylist/
// PlayArtistTopTracks) has no containing listing to pull metadata from.
func (c *Client) Track(id uint32) (Track, error) {
	t, err := c.ensureConstructed()
	if err != nil {
		return Track{}, err
	}
	var resp struct {
		Song rawSong `json:"song"`
	}
	if err := t.get("getSong", map[string]string{"id": fmt.Sprint(id)}, &resp); err != nil {
		return Track{}, err
	}
	return resp.Song.toTrack(), nil
}

// StreamURL resolves the directly-fetchable signed media URL for trackID.
func (c *Client) StreamURL(trackID uint32) (string, error) {
	t, err := c.ensureConstructed()
	if err != nil {
		return "", err
	}
	return t.streamURL(fmt.Sprint(trackID)), nil
}

// AddFavorite stars an entity and invalidates the library cache.
func (c *Client) AddFavorite(kind, id string) error {
	t, err := c.ensureConstructed()
	if err != nil {
		return err
	}
	if err := t.get("star", map[string]string{kind: id}, nil); err != nil {
		return err
	}
	c.libraryCache.Invalidate()
	return nil
}

// RemoveFavorite unstars an entity and invalidates the library cache.
func (c *Client) RemoveFavorite(kind, id string) error {
	t, err := c.ensureConstructed()
	if err != nil {
		return err
	}
	if err := t.get("unstar", map[string]string{kind: id}, nil); err != nil {
		return err
	}
	c.libraryCache.Invalidate()
	return nil
}

// CreatePlaylist creates a playlist and invalidates the library cache.
func (c *Client) CreatePlaylist(name string) error {
	t, err := c.ensureConstructed()
	if err != nil {
		return err
	}
	if err := t.get("createPlaylist", map[string]string{"name": name}, nil); err != nil {
		return err
	}
	c.libraryCache.Invalidate()
	return nil
}

// DeletePlaylist deletes a playlist and invalidates the library cache and
// the specific playlist entry.
func (c *Client) DeletePlaylist(id uint32) error {
	t, err := c.ensureConstructed()
	if err != nil {
		return err
	}
	if err := t.get("deletePlaylist", map[string]string{"id": fmt.Sprint(id)}, nil); err != nil {
		return err
	}
	c.libraryCache.Invalidate()
	c.playlistCache.Invalidate(id)
	return nil
}

// AddTrackToPlaylist adds a track and invalidates that playlist's cache entry.
func (c *Client) AddTrackToPlaylist(playlistID uint32, trackID uint32) error {
	t, err := c.ensureConstructed()
	if err != nil {
		return err
	}
	if err := t.get("updatePlaylist", map[string]string{
		"playlistId": fmt.Sprint(playlistID),
		"songIdToAdd": fmt.Sprint(trackID),
	}, nil); err != nil {
		return err
	}
	c.playlistCache.Invalidate(playlistID)
	return nil
}

// RemoveTrackFromPlaylist removes a track and invalidates that playlist's cache entry.
func (c *Client) RemoveTrackFromPlaylist(playlistID uint32, playlistTrackIndex uint32) error {
	t, err := c.ensureConstructed()
	if err != nil {
		return err
	}
	if err := t.get("updatePlaylist", map[string]string{
		"playlistId":        fmt.Sprint(playlistID),
		"songIndexToRemove": fmt.Sprint(playlistTrackIndex),
	}, nil); err != nil {
		return err
	}
	c.playlistCache.Invalidate(playlistID)
	return nil
}
