//go:build integration

package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListDevicesIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	devices, err := ListDevices(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, devices)
}

func TestPulseSourceDeliversFramesIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	source, _, err := NewPulseSource(ctx, "default")
	require.NoError(t, err)

	format := Format{SampleRate: 16000, Channels: 1, FrameSamples: 512, QueueFrames: 64}
	stream, err := source.Open(ctx, format)
	require.NoError(t, err)

	frame, err := stream.Pull(ctx)
	require.NoError(t, err)
	require.Len(t, frame.Samples, format.FrameLen())
	require.NoError(t, stream.Close())
}
