// Package engine drives the per-block control flow of the mastering chain:
// input validation, DSP invocation, windowed peak tracking and best-effort
// publication of loudness telemetry into the shared memory region. One
// Engine exists per plugin instance. The host serializes control calls
// (SetState, BufferSizeChanged, Activate) against the audio callback
// (ProcessBlock), as plugin hosts do; the Engine itself takes no locks so
// the audio path stays free of blocking operations.
package engine

import (
	"log/slog"
	"math"

	"github.com/Navezjt/master-me/internal/errors"
	"github.com/Navezjt/master-me/internal/meter"
	"github.com/Navezjt/master-me/internal/shmem"
)

// Processor is the external DSP stage. Compute produces output samples
// from input samples; the loudness readings it updates as a side effect
// are read back after each block.
type Processor interface {
	Compute(frames int, inputs, outputs [][]float32)
	LoudnessIn() float32
	LoudnessOut() float32
}

// State keys of the host-driven configuration interface.
const (
	// StateKeyTelemetry names the shared memory region to publish
	// loudness telemetry into, enabling telemetry as a side effect.
	StateKeyTelemetry = "telemetry"
	// StateKeyMode switches between the simple and advanced parameter
	// surface; it is stored for UI-facing logic and does not affect
	// processing.
	StateKeyMode = "mode"
)

// nonFiniteLogInterval rate-limits the contract-violation warning so a
// host feeding garbage cannot flood the log from the audio thread.
const nonFiniteLogInterval = 1024

// Engine is the audio processing orchestrator.
type Engine struct {
	proc    Processor
	tracker *meter.Tracker
	region  *shmem.Region

	telemetryActive bool
	minWindowFrames uint32
	mode            string

	nonFiniteBlocks uint64

	log *slog.Logger
}

// New returns an Engine processing through proc. The analysis window
// starts at max(minWindowFrames, hostBufferSize) and follows later buffer
// size changes.
func New(proc Processor, minWindowFrames, hostBufferSize uint32, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if minWindowFrames < 1 {
		minWindowFrames = 1
	}
	e := &Engine{
		proc:            proc,
		minWindowFrames: minWindowFrames,
		mode:            "simple",
		log:             logger,
	}
	e.tracker = meter.NewTracker(windowFor(minWindowFrames, hostBufferSize))
	return e
}

func windowFor(floor, bufferSize uint32) uint32 {
	if bufferSize > floor {
		return bufferSize
	}
	return floor
}

// ProcessBlock runs one audio block through the chain. inputs and outputs
// each hold two planar channel buffers of equal length. Non-finite
// samples are a contract violation by the host or upstream DSP; they are
// clamped to silence and logged rate-limited, because the audio thread
// must never stop producing output.
func (e *Engine) ProcessBlock(inputs, outputs [][]float32) {
	frames := len(inputs[0])

	clamped := sanitize(inputs[0]) + sanitize(inputs[1])

	e.proc.Compute(frames, inputs, outputs)

	clamped += sanitize(outputs[0]) + sanitize(outputs[1])
	if clamped > 0 {
		e.nonFiniteBlocks++
		if e.nonFiniteBlocks%nonFiniteLogInterval == 1 {
			e.log.Warn("non-finite samples clamped to silence",
				"samples", clamped,
				"blocks_affected", e.nonFiniteBlocks)
		}
	}

	e.tracker.Observe(meter.Input, e.proc.LoudnessIn())
	e.tracker.Observe(meter.Output, e.proc.LoudnessOut())

	if e.tracker.AdvanceFrames(uint32(frames)) {
		e.publishWindow()
		// peaks reset once per window regardless of telemetry state
		e.tracker.Reset()
	}
}

// publishWindow writes both windowed peaks to the shared region. The
// consumer's closed flag is polled here, once per window boundary, never
// per sample; a set flag parks telemetry but leaves the region bound so
// the producer stays crash-proof against the vanished consumer.
func (e *Engine) publishWindow() {
	if !e.telemetryActive {
		return
	}
	layout := e.region.Layout()
	if layout == nil {
		return
	}
	if layout.Closed() {
		e.telemetryActive = false
		e.log.Info("telemetry consumer closed, publication idle",
			"region", e.region.Name())
		return
	}
	layout.In.Write(e.tracker.Peak(meter.Input))
	layout.Out.Write(e.tracker.Peak(meter.Output))
}

// SetState applies a textual state change from the host configuration
// interface. Unknown keys are ignored.
func (e *Engine) SetState(key, value string) error {
	switch key {
	case StateKeyMode:
		if value != "simple" && value != "advanced" {
			return errors.Newf("unknown mode %q", value).
				Component("engine").
				Category(errors.CategoryValidation).
				Build()
		}
		e.mode = value
		return nil

	case StateKeyTelemetry:
		return e.bindTelemetry(value)

	default:
		e.log.Debug("ignoring unknown state key", "key", key)
		return nil
	}
}

// bindTelemetry connects the loudness channels to the named shared
// region. Precondition: telemetry must not currently be active; the
// consumer signals closure (or the host disables telemetry) before a
// rebind. A mapping failure is recoverable: telemetry stays off and audio
// processing continues untouched.
func (e *Engine) bindTelemetry(name string) error {
	if e.telemetryActive {
		return errors.Newf("telemetry already active on region %q, close it before rebinding", e.region.Name()).
			Component("engine").
			Category(errors.CategoryState).
			Context("region", e.region.Name()).
			Build()
	}

	// a previously bound, now idle region must be released before the
	// name can be reused
	if e.region.Bound() {
		if err := e.region.Close(); err != nil {
			e.log.Warn("closing stale telemetry region", "error", err)
		}
		e.region = nil
	}

	region, err := shmem.CreateOrConnect(name)
	if err != nil {
		e.log.Warn("telemetry disabled, shared region unavailable",
			"region", name, "error", err)
		return err
	}

	e.region = region
	e.telemetryActive = true
	e.log.Info("telemetry enabled", "region", name, "created", region.Created())
	return nil
}

// DisableTelemetry parks publication without releasing the region.
func (e *Engine) DisableTelemetry() {
	e.telemetryActive = false
}

// BufferSizeChanged recomputes the analysis window when the host reports
// a new audio buffer size: the window is never shorter than one block and
// never shorter than the configured minimum, so small-block low-latency
// hosts still get a usable metering cadence. Takes effect immediately,
// not retroactively.
func (e *Engine) BufferSizeChanged(newBufferSize uint32) {
	e.tracker.SetWindowFrames(windowFor(e.minWindowFrames, newBufferSize))
}

// Activate realigns the analysis window to a fresh transport activation.
func (e *Engine) Activate() {
	e.tracker.ResetAccumulator()
}

// Close tears down telemetry and destroys the shared region. Called on
// plugin teardown; only the audio process destroys the region.
func (e *Engine) Close() error {
	e.telemetryActive = false
	if !e.region.Bound() {
		return nil
	}
	err := e.region.Close()
	e.region = nil
	return err
}

// TelemetryActive reports whether window boundaries currently publish.
func (e *Engine) TelemetryActive() bool { return e.telemetryActive }

// Mode returns the current UI mode ("simple" or "advanced").
func (e *Engine) Mode() string { return e.mode }

// WindowFrames returns the current analysis window size.
func (e *Engine) WindowFrames() uint32 { return e.tracker.WindowFrames() }

// Region exposes the bound shared region, nil-safe; used by the
// standalone host for teardown and by tests.
func (e *Engine) Region() *shmem.Region { return e.region }

const maxFinite = math.MaxFloat32

// sanitize clamps NaN and infinite samples to silence, returning how many
// samples were touched. Allocation-free, branch-predictable for the clean
// common case.
func sanitize(buf []float32) int {
	clamped := 0
	for i, v := range buf {
		if v != v || v > maxFinite || v < -maxFinite {
			buf[i] = 0
			clamped++
		}
	}
	return clamped
}
