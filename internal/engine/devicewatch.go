package engine

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chartzngrafs/streamtrack/internal/notify"
	"github.com/chartzngrafs/streamtrack/internal/sink"
	"github.com/chartzngrafs/streamtrack/internal/store"
)

const deviceWatchInterval = 5 * time.Second

// WatchDevices polls the configured output device's continued presence and,
// if it has disappeared, asks the engine to fall back to the system
// default through the same Controls surface a front-end would use. It runs
// as its own goroutine alongside Engine.Run rather than inside the engine's
// select loop, since it only ever produces a command and never touches
// engine state directly.
func WatchDevices(st *store.Store, controls *Controls, bus *notify.Bus, log *logrus.Entry, exit <-chan struct{}) {
	ticker := time.NewTicker(deviceWatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-exit:
			return
		case <-ticker.C:
			checkDevicePresence(st, controls, bus, log)
		}
	}
}

func checkDevicePresence(st *store.Store, controls *Controls, bus *notify.Bus, log *logrus.Entry) {
	cfg, err := st.GetConfiguration()
	if err != nil || cfg.AudioDeviceName == nil {
		return
	}

	devices, err := sink.ListAudioDevices()
	if err != nil {
		log.WithError(err).Warn("listing audio devices")
		return
	}
	for _, d := range devices {
		if d.Name == *cfg.AudioDeviceName {
			return
		}
	}

	bus.Warnf("audio device %q disappeared, falling back to default", *cfg.AudioDeviceName)
	controls.SetAudioDevice(nil)
}
