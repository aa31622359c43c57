package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/chartzngrafs/streamtrack/internal/catalogue"
	"github.com/chartzngrafs/streamtrack/internal/tracklist"
)

// Credentials is the stored username/hashed-password pair. The store never
// exposes the pre-hash password form.
type Credentials struct {
	Username    *string
	PasswordMD5 *string
}

// GetCredentials returns the single stored credentials row, zero-valued if
// none has been set yet.
func (s *Store) GetCredentials() (Credentials, error) {
	var c Credentials
	row := s.db.QueryRow(`SELECT username, password_md5 FROM credentials WHERE rowid = 1`)
	if err := row.Scan(&c.Username, &c.PasswordMD5); err != nil {
		if err == sql.ErrNoRows {
			return Credentials{}, nil
		}
		return Credentials{}, fmt.Errorf("store: get credentials: %w", err)
	}
	return c, nil
}

// SetCredentials upserts the single credentials row.
func (s *Store) SetCredentials(c Credentials) error {
	_, err := s.db.Exec(`
		INSERT INTO credentials(rowid, username, password_md5) VALUES (1, ?, ?)
		ON CONFLICT(rowid) DO UPDATE SET username = excluded.username, password_md5 = excluded.password_md5
	`, c.Username, c.PasswordMD5)
	if err != nil {
		return fmt.Errorf("store: set credentials: %w", err)
	}
	return nil
}

// Configuration is the single stored playback-configuration row.
type Configuration struct {
	MaxAudioQuality  catalogue.AudioQuality
	AudioDeviceName  *string
	PreferredGenreID *uint32
	TimeStretchRatio float64
	PitchSemitones   int
	PitchCents       int
}

func defaultConfiguration() Configuration {
	return Configuration{TimeStretchRatio: 1.0}
}

// GetConfiguration returns the stored playback configuration, defaulted if unset.
func (s *Store) GetConfiguration() (Configuration, error) {
	cfg := defaultConfiguration()
	row := s.db.QueryRow(`
		SELECT max_audio_quality, audio_device_name, preferred_genre_id, time_stretch_ratio, pitch_semitones, pitch_cents
		FROM configuration WHERE rowid = 1
	`)
	var quality int
	err := row.Scan(&quality, &cfg.AudioDeviceName, &cfg.PreferredGenreID, &cfg.TimeStretchRatio, &cfg.PitchSemitones, &cfg.PitchCents)
	if err == sql.ErrNoRows {
		return cfg, nil
	}
	if err != nil {
		return Configuration{}, fmt.Errorf("store: get configuration: %w", err)
	}
	cfg.MaxAudioQuality = catalogue.AudioQuality(quality)
	return cfg, nil
}

// clampConfiguration enforces each field's valid range regardless of
// caller input.
func clampConfiguration(cfg Configuration) Configuration {
	cfg.TimeStretchRatio = clampFloat(cfg.TimeStretchRatio, 0.5, 2.0)
	cfg.PitchSemitones = clampInt(cfg.PitchSemitones, -12, 12)
	cfg.PitchCents = clampInt(cfg.PitchCents, -100, 100)
	return cfg
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetConfiguration upserts the playback configuration, clamping
// time_stretch_ratio/pitch_semitones/pitch_cents to their valid ranges.
func (s *Store) SetConfiguration(cfg Configuration) error {
	cfg = clampConfiguration(cfg)
	_, err := s.db.Exec(`
		INSERT INTO configuration(rowid, max_audio_quality, audio_device_name, preferred_genre_id, time_stretch_ratio, pitch_semitones, pitch_cents)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(rowid) DO UPDATE SET
			max_audio_quality = excluded.max_audio_quality,
			audio_device_name = excluded.audio_device_name,
			preferred_genre_id = excluded.preferred_genre_id,
			time_stretch_ratio = excluded.time_stretch_ratio,
			pitch_semitones = excluded.pitch_semitones,
			pitch_cents = excluded.pitch_cents
	`, int(cfg.MaxAudioQuality), cfg.AudioDeviceName, cfg.PreferredGenreID, cfg.TimeStretchRatio, cfg.PitchSemitones, cfg.PitchCents)
	if err != nil {
		return fmt.Errorf("store: set configuration: %w", err)
	}
	return nil
}

// GetMaxQuality is a narrow accessor over Configuration.MaxAudioQuality.
func (s *Store) GetMaxQuality() (catalogue.AudioQuality, error) {
	cfg, err := s.GetConfiguration()
	if err != nil {
		return 0, err
	}
	return cfg.MaxAudioQuality, nil
}

// SetMaxQuality is a narrow mutator over Configuration.MaxAudioQuality.
func (s *Store) SetMaxQuality(q catalogue.AudioQuality) error {
	cfg, err := s.GetConfiguration()
	if err != nil {
		return err
	}
	cfg.MaxAudioQuality = q
	return s.SetConfiguration(cfg)
}

// GetTracklist returns the stored tracklist snapshot, zero-valued if none
// has been persisted yet.
func (s *Store) GetTracklist() (tracklist.Tracklist, error) {
	var blob []byte
	row := s.db.QueryRow(`SELECT tracklist_blob FROM tracklist WHERE rowid = 1`)
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return tracklist.Tracklist{}, nil
		}
		return tracklist.Tracklist{}, fmt.Errorf("store: get tracklist: %w", err)
	}
	return tracklist.FromBlob(blob)
}

// SetTracklist atomically replaces the stored tracklist snapshot.
func (s *Store) SetTracklist(t tracklist.Tracklist) error {
	blob, err := t.Blob()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO tracklist(rowid, tracklist_blob) VALUES (1, ?)
		ON CONFLICT(rowid) DO UPDATE SET tracklist_blob = excluded.tracklist_blob
	`, blob)
	if err != nil {
		return fmt.Errorf("store: set tracklist: %w", err)
	}
	return nil
}

// GetVolume returns the stored volume, defaulting to 1.0 if unset.
func (s *Store) GetVolume() (float64, error) {
	var v float64
	row := s.db.QueryRow(`SELECT volume_real FROM volume WHERE rowid = 1`)
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return 1.0, nil
		}
		return 0, fmt.Errorf("store: get volume: %w", err)
	}
	return v, nil
}

// SetVolume atomically replaces the stored volume.
func (s *Store) SetVolume(v float64) error {
	_, err := s.db.Exec(`
		INSERT INTO volume(rowid, volume_real) VALUES (1, ?)
		ON CONFLICT(rowid) DO UPDATE SET volume_real = excluded.volume_real
	`, v)
	if err != nil {
		return fmt.Errorf("store: set volume: %w", err)
	}
	return nil
}

// UpsertCacheEntry records that path was opened at now.
func (s *Store) UpsertCacheEntry(path string, now time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO cache_entries(path, last_opened) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET last_opened = excluded.last_opened
	`, path, now.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store: upsert cache entry: %w", err)
	}
	return nil
}

// CleanUpCacheEntries deletes cache_entries rows whose last_opened is older
// than ttl and returns the evicted paths so the caller can unlink the files.
func (s *Store) CleanUpCacheEntries(ttl time.Duration, now time.Time) ([]string, error) {
	cutoff := now.Add(-ttl).UTC().Format(time.RFC3339)

	rows, err := s.db.Query(`SELECT path FROM cache_entries WHERE last_opened < ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("store: querying stale cache entries: %w", err)
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scanning stale cache entry: %w", err)
		}
		paths = append(paths, p)
	}
	rows.Close()

	if _, err := s.db.Exec(`DELETE FROM cache_entries WHERE last_opened < ?`, cutoff); err != nil {
		return nil, fmt.Errorf("store: deleting stale cache entries: %w", err)
	}
	return paths, nil
}

// RFIDReferenceKind discriminates what kind of entity an RFID tag is bound to.
type RFIDReferenceKind int

const (
	RFIDAlbum RFIDReferenceKind = 1
	RFIDPlaylist RFIDReferenceKind = 2
)

// RFIDReference is the stored binding for a single RFID tag id.
type RFIDReference struct {
	Kind       RFIDReferenceKind
	AlbumID    *string
	PlaylistID *uint32
}

// AddRFIDBinding upserts the binding for tagID.
func (s *Store) AddRFIDBinding(tagID string, ref RFIDReference) error {
	_, err := s.db.Exec(`
		INSERT INTO rfid_references(id, reference_type, album_id, playlist_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET reference_type = excluded.reference_type, album_id = excluded.album_id, playlist_id = excluded.playlist_id
	`, tagID, int(ref.Kind), ref.AlbumID, ref.PlaylistID)
	if err != nil {
		return fmt.Errorf("store: add rfid binding: %w", err)
	}
	return nil
}

// GetRFIDBinding returns the binding for tagID, if one exists.
func (s *Store) GetRFIDBinding(tagID string) (RFIDReference, bool, error) {
	var ref RFIDReference
	var kind int
	row := s.db.QueryRow(`SELECT reference_type, album_id, playlist_id FROM rfid_references WHERE id = ?`, tagID)
	if err := row.Scan(&kind, &ref.AlbumID, &ref.PlaylistID); err != nil {
		if err == sql.ErrNoRows {
			return RFIDReference{}, false, nil
		}
		return RFIDReference{}, false, fmt.Errorf("store: get rfid binding: %w", err)
	}
	ref.Kind = RFIDReferenceKind(kind)
	return ref, true, nil
}
