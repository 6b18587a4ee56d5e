package aacenc

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTonePatternParse(t *testing.T) {
	for p := ToneSilence; p <= ToneSweep; p++ {
		got, err := ParseTonePattern(p.String())
		require.NoError(t, err, p.String())
		assert.Equal(t, p, got)
	}
	_, err := ParseTonePattern("triangle")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestToneSourceBlocks(t *testing.T) {
	src := NewToneSource(ToneConfig{SampleRate: 44100, Channels: 2, Pattern: ToneSine})
	defer src.Close()
	require.NoError(t, src.Start(context.Background()))

	samples, err := src.ReadSamples(context.Background())
	require.NoError(t, err)
	require.Equal(t, SamplesPerFrame, samples.SampleCount)
	require.Len(t, samples.Data, SamplesPerFrame*4)
	assert.Equal(t, AudioFormatS16, samples.Format)
	assert.Equal(t, 2, samples.Channels)
	assert.Equal(t, 44100, samples.SampleRate)

	// Channels carry the same sample; the amplitude is bounded by 0.5.
	var peak int16
	for i := 0; i < samples.SampleCount; i++ {
		l := int16(binary.LittleEndian.Uint16(samples.Data[i*4:]))
		r := int16(binary.LittleEndian.Uint16(samples.Data[i*4+2:]))
		require.Equal(t, l, r, "sample %d", i)
		peak = max(peak, l)
	}
	assert.GreaterOrEqual(t, peak, int16(16000))
	assert.LessOrEqual(t, peak, int16(16384))

	next, err := src.ReadSamples(context.Background())
	require.NoError(t, err)
	assert.Greater(t, next.Timestamp, samples.Timestamp, "timestamps must increase")
}

func TestToneSourceSilence(t *testing.T) {
	src := NewToneSource(ToneConfig{Channels: 1, Pattern: ToneSilence})
	defer src.Close()

	samples, err := src.ReadSamples(context.Background())
	require.NoError(t, err)
	assert.Equal(t, make([]byte, len(samples.Data)), samples.Data)
}

func TestToneSourceNoiseDeterministic(t *testing.T) {
	a := NewToneSource(ToneConfig{Pattern: ToneNoise, Seed: 7})
	b := NewToneSource(ToneConfig{Pattern: ToneNoise, Seed: 7})
	defer a.Close()
	defer b.Close()

	sa, err := a.ReadSamples(context.Background())
	require.NoError(t, err)
	sb, err := b.ReadSamples(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sa.Data, sb.Data, "same seed")
}

func TestToneSourceDuration(t *testing.T) {
	// 2500 samples: two full blocks and a short one.
	src := NewToneSource(ToneConfig{SampleRate: 8000, Channels: 1, Duration: 312500 * time.Microsecond})
	defer src.Close()

	var total int
	for {
		samples, err := src.ReadSamples(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		total += samples.SampleCount
	}
	assert.Equal(t, 2500, total)
}

func TestToneSourceRealtime(t *testing.T) {
	src := NewToneSource(ToneConfig{SampleRate: 48000, Channels: 1, FrameSize: 480, Realtime: true, Duration: 50 * time.Millisecond})
	defer src.Close()
	require.NoError(t, src.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	blocks := 0
	for {
		_, err := src.ReadSamples(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		blocks++
	}
	assert.GreaterOrEqual(t, blocks, 1)
	assert.LessOrEqual(t, blocks, 5)
}

func TestToneSourceClose(t *testing.T) {
	src := NewToneSource(ToneConfig{Realtime: true})
	require.NoError(t, src.Start(context.Background()))
	assert.Error(t, src.Start(context.Background()), "second Start")
	src.Close()
	src.Close()

	_, err := src.ReadSamples(context.Background())
	assert.ErrorIs(t, err, ErrSourceClosed)
	assert.ErrorIs(t, src.Start(context.Background()), ErrSourceClosed)
}

func TestCreateAudioSource(t *testing.T) {
	require.True(t, IsAudioSourceAvailable(SourceTypeTone))
	require.True(t, IsAudioSourceAvailable(SourceTypeReader))

	src, err := CreateAudioSource(SourceTypeTone, &ToneConfig{Channels: 1})
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, 1, src.Channels())
	assert.Equal(t, 44100, src.SampleRate())

	_, err = CreateAudioSource(SourceTypeReader, nil)
	assert.Error(t, err, "reader source without config")
	_, err = CreateAudioSource(SourceTypeUnknown, nil)
	assert.Error(t, err, "unknown source type")
}
