package audio

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/rbright/murmur/internal/fault"
)

// MalgoSource opens capture streams through miniaudio. It is the fallback
// backend for systems without a Pulse server.
type MalgoSource struct {
	device string
}

// NewMalgoSource builds a miniaudio source. device is "default", a device
// name substring, or a hex device id as printed by `murmur devices`.
func NewMalgoSource(device string) *MalgoSource {
	return &MalgoSource{device: strings.TrimSpace(device)}
}

// ListMalgoDevices enumerates miniaudio capture devices.
func ListMalgoDevices() ([]Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, Device{
			ID:          deviceIDString(info.ID),
			Description: info.Name(),
			State:       "unknown",
			Available:   true,
			Default:     info.IsDefault != 0,
		})
	}
	return devices, nil
}

// deviceIDString renders a miniaudio device id as hex without its zero padding.
func deviceIDString(id malgo.DeviceID) string {
	return hex.EncodeToString(bytes.TrimRight(id[:], "\x00"))
}

func (s *MalgoSource) Open(_ context.Context, format Format) (Stream, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: initializing audio context: %w", fault.ErrCapabilityUnavailable, err)
	}

	stream := &malgoStream{ctx: mctx, framer: newFramer(format, nil)}

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatS16
	deviceCfg.Capture.Channels = uint32(format.Channels)
	deviceCfg.SampleRate = uint32(format.SampleRate)

	if s.device != "" && s.device != "default" {
		id, err := s.resolveDevice(mctx)
		if err != nil {
			stream.release()
			return nil, fmt.Errorf("%w: %w", fault.ErrCapabilityUnavailable, err)
		}
		deviceCfg.Capture.DeviceID = id.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, _ uint32) {
			_, _ = stream.framer.write(data)
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceCfg, callbacks)
	if err != nil {
		stream.release()
		return nil, fmt.Errorf("%w: initializing capture device: %w", fault.ErrCapabilityUnavailable, err)
	}
	stream.device = device

	if err := device.Start(); err != nil {
		stream.release()
		return nil, fmt.Errorf("%w: starting capture device: %w", fault.ErrCapabilityUnavailable, err)
	}
	return stream, nil
}

func (s *MalgoSource) resolveDevice(mctx *malgo.AllocatedContext) (malgo.DeviceID, error) {
	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceID{}, fmt.Errorf("malgo devices: %w", err)
	}

	term := strings.ToLower(s.device)
	for _, info := range infos {
		if deviceIDString(info.ID) == term || strings.Contains(strings.ToLower(info.Name()), term) {
			return info.ID, nil
		}
	}
	return malgo.DeviceID{}, fmt.Errorf("audio.device %q did not match any device", s.device)
}

type malgoStream struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	framer *framer
	once   sync.Once
}

func (s *malgoStream) Pull(ctx context.Context) (Frame, error) {
	return s.framer.pull(ctx)
}

func (s *malgoStream) Close() error {
	s.once.Do(s.release)
	return nil
}

// release stops the device before finishing the framer so no callback can
// race the final flush.
func (s *malgoStream) release() {
	if s.device != nil {
		_ = s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
	s.framer.finish()
	if s.ctx != nil {
		_ = s.ctx.Uninit()
		s.ctx.Free()
		s.ctx = nil
	}
}
