package audio

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"

	"github.com/Navezjt/master-me/internal/conf"
	"github.com/Navezjt/master-me/internal/errors"
)

const (
	// pollInterval paces the block assembly loop between device callbacks.
	pollInterval = 10 * time.Millisecond
	// ringBlocks sizes the capture ring in processing blocks; the device
	// callback must never find it full under normal scheduling.
	ringBlocks = 32
)

// DeviceInfo describes an available capture device.
type DeviceInfo struct {
	Index int
	Name  string
}

// ListCaptureDevices enumerates the capture devices of the default
// backend.
func ListCaptureDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategorySystem).
			Context("operation", "init_context").
			Build()
	}
	defer func() { _ = ctx.Uninit() }()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategorySystem).
			Context("operation", "enumerate_devices").
			Build()
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		devices = append(devices, DeviceInfo{Index: i, Name: infos[i].Name()})
	}
	return devices, nil
}

func defaultBackend() []malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return []malgo.Backend{malgo.BackendAlsa}
	case "windows":
		return []malgo.Backend{malgo.BackendWasapi}
	case "darwin":
		return []malgo.Backend{malgo.BackendCoreaudio}
	default:
		return nil // let miniaudio pick
	}
}

// Capture pulls S16 stereo PCM from a capture device, assembles it into
// fixed-size blocks and hands each block to process as planar float32.
// The device callback only copies bytes into a ring buffer; conversion
// and processing happen on the capture goroutine, mirroring the split
// between the driver thread and the analysis loop.
func Capture(ctx context.Context, settings *conf.Settings, logger *slog.Logger, process func(inputs [][]float32)) error {
	if logger == nil {
		logger = slog.Default()
	}

	malgoCtx, err := malgo.InitContext(defaultBackend(), malgo.ContextConfig{}, func(message string) {
		logger.Debug("miniaudio", "message", strings.TrimSpace(message))
	})
	if err != nil {
		return errors.New(err).
			Component("audio").
			Category(errors.CategorySystem).
			Context("operation", "init_context").
			Build()
	}
	defer func() { _ = malgoCtx.Uninit() }()

	blockFrames := settings.Audio.BlockSize
	blockBytes := blockFrames * 4 // stereo S16
	rb := ringbuffer.New(blockBytes * ringBlocks)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 2
	deviceConfig.SampleRate = uint32(settings.Audio.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if settings.Audio.Source != "" {
		id, err := findDevice(malgoCtx, settings.Audio.Source)
		if err != nil {
			return err
		}
		deviceConfig.Capture.DeviceID = id
	}

	// the callback runs on the device driver's thread, the counter is
	// read from the capture goroutine
	var dropped atomic.Int64
	onRecv := newRecvHandler(rb, &dropped)

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecv})
	if err != nil {
		return errors.New(err).
			Component("audio").
			Category(errors.CategorySystem).
			Context("operation", "init_device").
			Context("source", settings.Audio.Source).
			Build()
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return errors.New(err).
			Component("audio").
			Category(errors.CategorySystem).
			Context("operation", "start_device").
			Build()
	}
	logger.Info("capture started",
		"source", settings.Audio.Source,
		"sample_rate", settings.Audio.SampleRate,
		"block_frames", blockFrames)

	raw := make([]byte, blockBytes)
	inputs := [][]float32{make([]float32, blockFrames), make([]float32, blockFrames)}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastDropReport int64
	for {
		select {
		case <-ctx.Done():
			_ = device.Stop()
			if n := dropped.Load(); n > 0 {
				logger.Warn("capture dropped callback data", "times", n)
			}
			return nil
		case <-ticker.C:
			for rb.Length() >= blockBytes {
				if _, err := io.ReadFull(rb, raw); err != nil {
					logger.Warn("capture ring read failed", "error", err)
					break
				}
				S16LEToPlanar(raw, inputs[0], inputs[1])
				process(inputs)
			}
			if n := dropped.Load(); n > lastDropReport && n%64 == 1 {
				logger.Warn("capture ring overrun, processing too slow", "times", n)
				lastDropReport = n
			}
		}
	}
}

// newRecvHandler returns the device data callback: it only copies bytes
// into the ring and counts what did not fit. No conversion, no processing,
// nothing that can block the driver thread.
func newRecvHandler(rb *ringbuffer.RingBuffer, dropped *atomic.Int64) func(_, pSample []byte, _ uint32) {
	return func(_, pSample []byte, _ uint32) {
		n, err := rb.Write(pSample)
		if err != nil || n < len(pSample) {
			// ring full, the processing loop is stalled; drop and move on
			dropped.Add(1)
		}
	}
}

func findDevice(ctx *malgo.AllocatedContext, source string) (unsafe.Pointer, error) {
	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategorySystem).
			Context("operation", "enumerate_devices").
			Build()
	}
	for i := range infos {
		if strings.Contains(strings.ToLower(infos[i].Name()), strings.ToLower(source)) {
			return infos[i].ID.Pointer(), nil
		}
	}
	return nil, errors.Newf("no capture device matching %q", source).
		Component("audio").
		Category(errors.CategoryValidation).
		Context("source", source).
		Build()
}
