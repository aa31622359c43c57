// Package mpris exposes the Playback Engine over D-Bus as an
// org.mpris.MediaPlayer2 / org.mpris.MediaPlayer2.Player object, so desktop
// shells and media keys can drive playback the same way they drive any
// other Linux media player.
// https://specifications.freedesktop.org/mpris-spec/latest/
package mpris

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/sirupsen/logrus"

	"github.com/chartzngrafs/streamtrack/internal/engine"
	"github.com/chartzngrafs/streamtrack/internal/tracklist"
	"github.com/chartzngrafs/streamtrack/internal/watch"
)

const (
	objectPath        = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	busName           = "org.mpris.MediaPlayer2.streamtrack"
	playerIface       = "org.mpris.MediaPlayer2.Player"
	rootIface         = "org.mpris.MediaPlayer2"
	noTrackObjectPath = "/org/mpris/MediaPlayer2/TrackList/NoTrack"
)

// PlaybackStatus mirrors the MPRIS PlaybackStatus enum.
// https://specifications.freedesktop.org/mpris-spec/latest/Player_Interface.html#Enum:Playback_Status
type PlaybackStatus string

const (
	statusPlaying PlaybackStatus = "Playing"
	statusPaused  PlaybackStatus = "Paused"
	statusStopped PlaybackStatus = "Stopped"
)

func playbackStatusFrom(s engine.Status) PlaybackStatus {
	switch s {
	case engine.StatusPlaying:
		return statusPlaying
	case engine.StatusBuffering:
		return statusPaused
	default:
		return statusPaused
	}
}

// usFromDuration converts to the MPRIS Time_In_Us simple type.
func usFromDuration(d time.Duration) int64 { return int64(d / time.Microsecond) }

// Player is the D-Bus object backing both MPRIS interfaces. It only ever
// reads the engine's watch channels and issues Controls commands; it never
// touches the sink, decoders, or catalogue directly.
type Player struct {
	controls *engine.Controls
	conn     *dbus.Conn
	props    *prop.Properties
	log      *logrus.Entry

	statusW    *watch.Watch[engine.Status]
	positionW  *watch.Watch[time.Duration]
	tracklistW *watch.Watch[tracklist.Tracklist]
	volumeW    *watch.Watch[float64]
}

// New connects to the session bus, publishes both MPRIS interfaces, and
// returns a Player whose Run method keeps its exported properties in sync
// with the engine until exit is closed. Returns an error (never panics) if
// no session bus is reachable, matching headless/CI environments where
// MPRIS is simply unavailable.
func New(controls *engine.Controls, statusW *watch.Watch[engine.Status], positionW *watch.Watch[time.Duration], tracklistW *watch.Watch[tracklist.Tracklist], volumeW *watch.Watch[float64], log *logrus.Entry) (*Player, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}

	p := &Player{
		controls:   controls,
		conn:       conn,
		log:        log,
		statusW:    statusW,
		positionW:  positionW,
		tracklistW: tracklistW,
		volumeW:    volumeW,
	}

	if err := conn.Export(rootAdapter{p}, objectPath, rootIface); err != nil {
		conn.Close()
		return nil, fmt.Errorf("exporting %s: %w", rootIface, err)
	}
	if err := conn.Export(playerAdapter{p}, objectPath, playerIface); err != nil {
		conn.Close()
		return nil, fmt.Errorf("exporting %s: %w", playerIface, err)
	}

	propsSpec := map[string]map[string]*prop.Prop{
		rootIface:   p.rootProps(),
		playerIface: p.playerProps(),
	}
	exportedProps, err := prop.Export(conn, objectPath, propsSpec)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("exporting properties: %w", err)
	}
	p.props = exportedProps

	n := introspect.Node{
		Name: string(objectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			introspectInterface(rootIface),
			introspectInterface(playerIface),
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(&n), objectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("exporting introspectable: %w", err)
	}

	reply, err := conn.RequestName(busName, dbus.NameFlagReplaceExisting|dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("requesting bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name %s already owned", busName)
	}

	return p, nil
}

func introspectInterface(name string) introspect.Interface {
	return introspect.Interface{Name: name}
}

func (p *Player) rootProps() map[string]*prop.Prop {
	return map[string]*prop.Prop{
		"CanQuit":             newProp(false, nil),
		"CanRaise":            newProp(false, nil),
		"HasTrackList":        newProp(false, nil),
		"Identity":            newProp("streamtrack", nil),
		"SupportedUriSchemes": newProp([]string{}, nil),
		"SupportedMimeTypes":  newProp([]string{}, nil),
	}
}

func (p *Player) playerProps() map[string]*prop.Prop {
	list := p.tracklistW.Value()
	return map[string]*prop.Prop{
		"PlaybackStatus": newProp(string(playbackStatusFrom(p.statusW.Value())), nil),
		"LoopStatus":     newProp("None", nil),
		"Rate":           newProp(1.0, nil),
		"Shuffle":        newProp(false, nil),
		"Metadata":       newProp(metadataFrom(list), nil),
		"Volume":         {Value: p.volumeW.Value(), Writable: true, Emit: prop.EmitTrue, Callback: p.onVolumeChanged},
		"Position": {
			Value:    usFromDuration(p.positionW.Value()),
			Writable: false,
			Emit:     prop.EmitFalse,
		},
		"MinimumRate":   newProp(1.0, nil),
		"MaximumRate":   newProp(1.0, nil),
		"CanGoNext":     newProp(true, nil),
		"CanGoPrevious": newProp(true, nil),
		"CanPlay":       newProp(true, nil),
		"CanPause":      newProp(true, nil),
		"CanSeek":       newProp(true, nil),
		"CanControl":    newProp(true, nil),
	}
}

func newProp(value any, cb func(*prop.Change) *dbus.Error) *prop.Prop {
	return &prop.Prop{Value: value, Writable: cb != nil, Emit: prop.EmitTrue, Callback: cb}
}

func (p *Player) onVolumeChanged(c *prop.Change) *dbus.Error {
	v, ok := c.Value.(float64)
	if !ok {
		return dbus.MakeFailedError(fmt.Errorf("volume: expected float64"))
	}
	p.controls.SetVolume(v)
	return nil
}

func metadataFrom(list tracklist.Tracklist) map[string]dbus.Variant {
	track, ok := (&list).CurrentTrack()
	if !ok {
		return map[string]dbus.Variant{
			"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath(noTrackObjectPath)),
		}
	}

	m := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath(fmt.Sprintf("/org/streamtrack/Tracks/%d", track.ID))),
		"mpris:length":  dbus.MakeVariant(int64(track.Duration) * int64(time.Second/time.Microsecond)),
		"xesam:title":   dbus.MakeVariant(track.Title),
	}
	if track.ArtistName != nil && *track.ArtistName != "" {
		m["xesam:artist"] = dbus.MakeVariant([]string{*track.ArtistName})
	}
	if track.AlbumTitle != nil && *track.AlbumTitle != "" {
		m["xesam:album"] = dbus.MakeVariant(*track.AlbumTitle)
	}
	if track.CoverArtURL != nil && *track.CoverArtURL != "" {
		m["mpris:artUrl"] = dbus.MakeVariant(*track.CoverArtURL)
	}
	if track.TrackNumber > 0 {
		m["xesam:trackNumber"] = dbus.MakeVariant(int32(track.TrackNumber))
	}
	return m
}

// rootAdapter implements org.mpris.MediaPlayer2's methods.
type rootAdapter struct{ p *Player }

func (r rootAdapter) Raise() *dbus.Error { return nil }
func (r rootAdapter) Quit() *dbus.Error  { return nil }

// playerAdapter implements org.mpris.MediaPlayer2.Player's methods.
// https://specifications.freedesktop.org/mpris-spec/latest/Player_Interface.html
type playerAdapter struct{ p *Player }

func (a playerAdapter) Next() *dbus.Error {
	a.p.controls.Next()
	return nil
}

func (a playerAdapter) Previous() *dbus.Error {
	a.p.controls.Previous()
	return nil
}

func (a playerAdapter) Pause() *dbus.Error {
	a.p.controls.Pause()
	return nil
}

func (a playerAdapter) PlayPause() *dbus.Error {
	a.p.controls.PlayPause()
	return nil
}

func (a playerAdapter) Stop() *dbus.Error {
	a.p.controls.Pause()
	return nil
}

func (a playerAdapter) Play() *dbus.Error {
	a.p.controls.Play()
	return nil
}

// Seek offsets the current position by offsetUs microseconds, per the MPRIS
// relative-seek contract.
func (a playerAdapter) Seek(offsetUs int64) *dbus.Error {
	pos := a.p.positionW.Value() + time.Duration(offsetUs)*time.Microsecond
	if pos < 0 {
		pos = 0
	}
	a.p.controls.Seek(pos.Milliseconds())
	return nil
}

func (a playerAdapter) SetPosition(trackID dbus.ObjectPath, positionUs int64) *dbus.Error {
	list := a.p.tracklistW.Value()
	track, ok := (&list).CurrentTrack()
	if !ok {
		return nil
	}
	if trackID != dbus.ObjectPath(fmt.Sprintf("/org/streamtrack/Tracks/%d", track.ID)) {
		return nil
	}
	a.p.controls.Seek(time.Duration(positionUs * int64(time.Microsecond)).Milliseconds())
	return nil
}

func (a playerAdapter) OpenUri(uri string) *dbus.Error {
	return dbus.MakeFailedError(fmt.Errorf("OpenUri not supported"))
}

// Run keeps the exported Position/PlaybackStatus/Metadata/Volume properties
// in sync with the engine's watch channels until exit is closed, emitting
// PropertiesChanged signals the way a native MPRIS player would. Position
// itself is excluded from change signals (Emit: EmitFalse), matching the
// MPRIS convention that clients poll Position via GetAll rather than
// subscribe to a per-tick signal.
func (p *Player) Run(exit <-chan struct{}) {
	statusCh := p.statusW.Subscribe()
	tracklistCh := p.tracklistW.Subscribe()
	volumeCh := p.volumeW.Subscribe()
	positionCh := p.positionW.Subscribe()

	for {
		select {
		case <-exit:
			return
		case <-statusCh:
			statusCh = p.statusW.Subscribe()
			p.setProp("PlaybackStatus", string(playbackStatusFrom(p.statusW.Value())))
		case <-tracklistCh:
			tracklistCh = p.tracklistW.Subscribe()
			p.setProp("Metadata", metadataFrom(p.tracklistW.Value()))
		case <-volumeCh:
			volumeCh = p.volumeW.Subscribe()
			p.setProp("Volume", p.volumeW.Value())
		case <-positionCh:
			positionCh = p.positionW.Subscribe()
			p.setProp("Position", usFromDuration(p.positionW.Value()))
		}
	}
}

// setProp updates an exported Player property (emitting PropertiesChanged
// when that property's Emit mode asks for it), logging rather than crashing
// the bridge if the underlying dbus/prop call ever panics (SetMust panics
// on an unknown property name).
func (p *Player) setProp(name string, value any) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("property", name).Warnf("updating MPRIS property: %v", r)
		}
	}()
	p.props.SetMust(playerIface, name, value)
}

// Close releases the bus name and closes the underlying connection.
func (p *Player) Close() error {
	p.conn.ReleaseName(busName)
	return p.conn.Close()
}
