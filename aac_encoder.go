package aacenc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AACEncoder is the AudioEncoder for ProviderVOAACEnc. It accepts PCM of any
// length, drives the Encoder until the input is consumed and stamps frames on
// the sample-rate RTP clock.
type AACEncoder struct {
	enc    *Encoder
	config AudioEncoderConfig

	frameBytes int    // Bytes of S16 PCM per access unit
	fed        uint64 // PCM bytes consumed by the codec
	timestamp  uint32 // RTP timestamp of the next frame
	stats      AudioEncoderStats
	convBuf    []byte

	mu sync.Mutex
}

// NewAACEncoder creates an AAC encoder. Zero fields in config take the values
// of DefaultAudioEncoderConfig(AudioCodecAAC).
func NewAACEncoder(config AudioEncoderConfig) (*AACEncoder, error) {
	config = config.withDefaults()
	if err := validateAACConfig(config); err != nil {
		return nil, err
	}

	enc, err := NewEncoder(config.Channels, config.SampleRate, config.BitrateBps, config.ADTS)
	if err != nil {
		return nil, fmt.Errorf("aacenc: open encoder: %w", err)
	}
	return newAACEncoder(enc, config), nil
}

func newAACEncoder(enc *Encoder, config AudioEncoderConfig) *AACEncoder {
	return &AACEncoder{
		enc:        enc,
		config:     config,
		frameBytes: SamplesPerFrame * config.Channels * AudioFormatS16.BytesPerSample(),
	}
}

func validateAACConfig(c AudioEncoderConfig) error {
	if c.Codec != AudioCodecAAC {
		return fmt.Errorf("%w: %s", ErrCodecNotSupported, c.Codec)
	}
	if c.Channels < 1 || c.Channels > 2 {
		return fmt.Errorf("%w: %d channels", ErrInvalidArgument, c.Channels)
	}
	if !IsSupportedSampleRate(c.SampleRate) {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidArgument, c.SampleRate)
	}
	if c.BitrateBps <= 0 {
		return fmt.Errorf("%w: bitrate %d", ErrInvalidArgument, c.BitrateBps)
	}
	return nil
}

// Encode implements AudioEncoder. Samples must match the configured rate and
// channel count; S16 and F32 input are accepted.
func (e *AACEncoder) Encode(samples *AudioSamples) (*EncodedAudio, error) {
	if samples == nil {
		return nil, fmt.Errorf("%w: nil samples", ErrInvalidArgument)
	}
	if samples.Channels != e.config.Channels {
		return nil, fmt.Errorf("%w: got %d channels, encoder has %d", ErrInvalidArgument, samples.Channels, e.config.Channels)
	}
	if samples.SampleRate != 0 && samples.SampleRate != e.config.SampleRate {
		return nil, fmt.Errorf("%w: got %d Hz, encoder runs at %d Hz", ErrInvalidArgument, samples.SampleRate, e.config.SampleRate)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pcm := samples.Data
	switch samples.Format {
	case AudioFormatS16:
	case AudioFormatF32:
		pcm = e.floatToS16(samples.Data)
	default:
		return nil, fmt.Errorf("%w: sample format %s", ErrInvalidArgument, samples.Format)
	}
	return e.encodeLocked(pcm)
}

// EncodePCM feeds interleaved S16LE PCM and returns the completed frames.
func (e *AACEncoder) EncodePCM(pcm []byte) (*EncodedAudio, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encodeLocked(pcm)
}

// Flush implements AudioEncoder. Buffered input short of a full frame is
// padded with silence and encoded.
func (e *AACEncoder) Flush() (*EncodedAudio, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rem := int(e.fed % uint64(e.frameBytes))
	if rem == 0 {
		return &EncodedAudio{Timestamp: e.timestamp}, nil
	}
	return e.encodeLocked(make([]byte, e.frameBytes-rem))
}

func (e *AACEncoder) encodeLocked(pcm []byte) (*EncodedAudio, error) {
	start := time.Now()
	result := &EncodedAudio{Timestamp: e.timestamp}

	off := 0
	for off < len(pcm) {
		out, used, err := e.enc.Encode(pcm, off, len(pcm)-off)
		off += used
		e.fed += uint64(used)
		if errors.Is(err, ErrInputBufferTooSmall) {
			// The codec buffered the rest and waits for more input.
			break
		}
		if err != nil {
			e.stats.Errors++
			Logger().Debug("aac encode failed", zap.Int("offset", off), zap.Error(err))
			return result, err
		}
		if len(out) > 0 {
			result.Frames = append(result.Frames, out)
			e.stats.FramesEncoded++
			e.stats.BytesEncoded += uint64(len(out))
			e.timestamp += SamplesPerFrame
			result.Duration += SamplesPerFrame
		} else if used == 0 {
			break
		}
	}

	bytesPerSample := e.config.Channels * AudioFormatS16.BytesPerSample()
	e.stats.SamplesEncoded += uint64(off / bytesPerSample)
	e.stats.EncodingTimeUs += uint64(time.Since(start).Microseconds())
	return result, nil
}

func (e *AACEncoder) floatToS16(data []byte) []byte {
	n := len(data) / 4
	if cap(e.convBuf) < n*2 {
		e.convBuf = make([]byte, n*2)
	}
	out := e.convBuf[:n*2]
	for i := 0; i < n; i++ {
		f := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		f = max(-1, min(1, f))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(f*math.MaxInt16)))
	}
	return out
}

// FrameBytes returns the number of S16 PCM bytes in one access unit.
func (e *AACEncoder) FrameBytes() int { return e.frameBytes }

// AudioSpecificConfig returns the MPEG-4 AudioSpecificConfig of the stream.
func (e *AACEncoder) AudioSpecificConfig() []byte {
	asc, _ := AudioSpecificConfig(ObjectTypeAACLC, e.config.SampleRate, e.config.Channels)
	return asc
}

// Provider implements AudioEncoder.
func (e *AACEncoder) Provider() Provider { return ProviderVOAACEnc }

// Config implements AudioEncoder.
func (e *AACEncoder) Config() AudioEncoderConfig { return e.config }

// Codec implements AudioEncoder.
func (e *AACEncoder) Codec() AudioCodec { return AudioCodecAAC }

// Stats implements AudioEncoder.
func (e *AACEncoder) Stats() AudioEncoderStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Close releases the native encoder.
func (e *AACEncoder) Close() error {
	return e.enc.Close()
}
