package sink

import "github.com/chartzngrafs/streamtrack/internal/apperr"

// AudioDevice is the empty-selection-means-default device record: a nil
// or empty Name always refers to whatever the host currently treats as
// its default output.
type AudioDevice struct {
	Name string
}

// deviceEnumerator is the seam the Sink opens streams through; tests
// substitute a fake enumerator/opener so the fallback chain (selected →
// default → any → fail) can be verified without real hardware. The
// production enumerator (systemEnumerator) reports only oto's single system
// output, since oto — unlike the rodio/cpal backend this design is grounded
// on — does not expose per-device selection uniformly across platforms; see
// DESIGN.md. resolveDevice carries the full fallback logic, but the Sink's
// open attempt ignores the device name, so every candidate opens that same
// system output.
type deviceEnumerator interface {
	List() ([]AudioDevice, error)
	Default() (AudioDevice, error)
}

// resolveDevice implements the device resolution chain: if no
// device is selected, resolve the current system default; if the selected
// device cannot be opened, retry with default; if default also fails, try
// any enumerated output device; if none work, return apperr.ErrDeviceGone.
func resolveDevice(enum deviceEnumerator, selected *string, tryOpen func(AudioDevice) error) (AudioDevice, error) {
	candidates := make([]AudioDevice, 0, 4)

	if selected != nil && *selected != "" {
		candidates = append(candidates, AudioDevice{Name: *selected})
	}

	if def, err := enum.Default(); err == nil {
		candidates = append(candidates, def)
	}

	if all, err := enum.List(); err == nil {
		candidates = append(candidates, all...)
	}

	var lastErr error
	tried := make(map[string]bool)
	for _, d := range candidates {
		if tried[d.Name] {
			continue
		}
		tried[d.Name] = true
		if err := tryOpen(d); err == nil {
			return d, nil
		} else {
			lastErr = err
		}
	}

	if lastErr == nil {
		lastErr = apperr.ErrDeviceGone
	}
	return AudioDevice{}, apperr.ErrDeviceGone
}

// ListAudioDevices enumerates the devices currently reported available.
func ListAudioDevices() ([]AudioDevice, error) {
	return defaultEnumerator.List()
}

// DefaultDeviceName returns the name of the current system default device.
func DefaultDeviceName() (string, error) {
	d, err := defaultEnumerator.Default()
	if err != nil {
		return "", err
	}
	return d.Name, nil
}

var defaultEnumerator deviceEnumerator = systemEnumerator{}

// systemEnumerator is the production enumerator. oto does not expose a
// cross-platform device list, so this reports the single implicit system
// output oto targets, under the name "default". Sink.openStream's open
// attempt ignores the device it is handed, so whichever candidate
// resolveDevice tries first opens that system output; a selected name
// never addresses a different physical device.
type systemEnumerator struct{}

func (systemEnumerator) List() ([]AudioDevice, error) {
	return []AudioDevice{{Name: "default"}}, nil
}

func (systemEnumerator) Default() (AudioDevice, error) {
	return AudioDevice{Name: "default"}, nil
}
