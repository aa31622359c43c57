// Package downloader ensures at most one concurrent download per track id,
// writing to a content-addressed path and signalling completion exactly
// once per waiter. Built on golang.org/x/sync/singleflight, the idiomatic
// Go replacement for a hand-rolled map-of-broadcast-senders scheme (see
// DESIGN.md).
package downloader

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/chartzngrafs/streamtrack/internal/notify"
	"github.com/chartzngrafs/streamtrack/internal/watch"
)

// CacheUpserter persists that a path was accessed, so the engine's TTL
// eviction can later reclaim it. Satisfied by *store.Store.
type CacheUpserter interface {
	UpsertCacheEntry(path string, now time.Time) error
}

// DoneEvent is published on Done() whenever a download completes, success
// or failure, so the engine's main loop can react with an edge-triggered
// pulse.
type DoneEvent struct {
	TrackID uint32
	Path    string
	Err     error
}

// Downloader guarantees at most one in-flight fetch per track id.
type Downloader struct {
	cacheDir string
	group    singleflight.Group
	store    CacheUpserter
	bus      *notify.Bus
	done     *watch.Watch[DoneEvent]
	log      *logrus.Entry
	client   *http.Client
}

// New creates a Downloader that writes fetched files under cacheDir.
func New(cacheDir string, store CacheUpserter, bus *notify.Bus, log *logrus.Entry) *Downloader {
	return &Downloader{
		cacheDir: cacheDir,
		store:    store,
		bus:      bus,
		done:     watch.New(DoneEvent{}),
		log:      log,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

// Done returns the watch channel the engine subscribes to for "download
// done" pulses.
func (d *Downloader) Done() *watch.Watch[DoneEvent] {
	return d.done
}

// pathFor returns the content-addressed cache path for a track id and URL.
func (d *Downloader) pathFor(trackID uint32, url string) string {
	sum := sha1.Sum([]byte(url))
	return filepath.Join(d.cacheDir, fmt.Sprintf("%d-%s", trackID, hex.EncodeToString(sum[:])))
}

// EnsureDownloaded returns the cache path synchronously if the file already
// exists; otherwise it starts (or joins) a background fetch for trackID and
// returns ("", false, nil) immediately. The caller observes completion via
// Done().
func (d *Downloader) EnsureDownloaded(trackID uint32, url string) (path string, ready bool, err error) {
	target := d.pathFor(trackID, url)
	if _, statErr := os.Stat(target); statErr == nil {
		return target, true, nil
	}

	key := fmt.Sprintf("%d", trackID)
	go func() {
		_, _, _ = d.group.Do(key, func() (any, error) {
			fetchErr := d.fetch(url, target)
			if fetchErr != nil {
				d.log.WithError(fetchErr).WithField("track_id", trackID).Warn("download failed")
				d.bus.Warnf("failed to download track: %v", fetchErr)
				d.done.Publish(DoneEvent{TrackID: trackID, Err: fetchErr})
				return nil, fetchErr
			}
			if err := d.store.UpsertCacheEntry(target, time.Now()); err != nil {
				d.log.WithError(err).Warn("failed to record cache entry")
			}
			d.done.Publish(DoneEvent{TrackID: trackID, Path: target})
			return target, nil
		})
	}()

	return "", false, nil
}

func (d *Downloader) fetch(url, target string) error {
	resp, err := d.client.Get(url)
	if err != nil {
		return fmt.Errorf("downloader: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloader: fetching %s: status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("downloader: preparing cache dir: %w", err)
	}

	tmp := target + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("downloader: creating temp file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("downloader: writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("downloader: closing temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("downloader: finalising cache file: %w", err)
	}
	return nil
}
