// Package board implements the board descriptor (C4) and board base (C5)
// components: the static per-board-id schema table, and the shared
// per-device state (presets, ring buffers, marker queues, streamers) that
// every concrete driver in drivers/* composes by embedding *Base.
package board

import (
	"log/slog"

	"github.com/c360/boardkit/metric"
)

// Preset identifies one of a device's parallel data streams.
type Preset string

const (
	// PresetDefault is the primary EEG stream every board must support.
	PresetDefault Preset = "default"
	// PresetAuxiliary carries telemetry (accelerometer, battery, temperature).
	PresetAuxiliary Preset = "auxiliary"
	// PresetAncillary carries a secondary physiological stream (e.g. EMG) on
	// devices that expose one.
	PresetAncillary Preset = "ancillary"
)

// Dependencies bundles the external collaborators a driver needs,
// following the same shape as the host framework's component.Dependencies
// so logging and metrics wiring looks identical across every driver.
type Dependencies struct {
	Logger  *slog.Logger
	Metrics *metric.Registry
}

// GetLogger returns the configured logger, or slog.Default() if none was
// provided.
func (d Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Flags holds the session lifecycle flags {initialized, streaming}. The
// keep-alive signal for a running acquisition loop is not kept here; each
// driver holds it as its own read-loop cancellation.
type Flags struct {
	Initialized bool
	Streaming   bool
}
