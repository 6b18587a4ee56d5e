package aacenc

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// TonePattern selects the waveform of a ToneSource.
type TonePattern int

const (
	ToneSilence TonePattern = iota
	ToneSine
	ToneSquare
	ToneNoise
	ToneSweep // Logarithmic sweep from SweepStartHz to SweepEndHz
)

func (p TonePattern) String() string {
	switch p {
	case ToneSilence:
		return "silence"
	case ToneSine:
		return "sine"
	case ToneSquare:
		return "square"
	case ToneNoise:
		return "noise"
	case ToneSweep:
		return "sweep"
	default:
		return "unknown"
	}
}

// ParseTonePattern maps a name as returned by String to a pattern.
func ParseTonePattern(name string) (TonePattern, error) {
	for p := ToneSilence; p <= ToneSweep; p++ {
		if p.String() == name {
			return p, nil
		}
	}
	return ToneSilence, fmt.Errorf("%w: tone pattern %q", ErrInvalidArgument, name)
}

// ToneConfig configures a ToneSource.
type ToneConfig struct {
	SampleRate int         // Sample rate (default: 44100)
	Channels   int         // Number of channels (default: 2)
	FrameSize  int         // Samples per read (default: 1024, one AAC frame)
	Pattern    TonePattern // Waveform
	Frequency  float64     // Tone frequency in Hz (default: 440)
	Amplitude  float64     // 0.0-1.0 (default: 0.5)

	SweepStartHz  float64
	SweepEndHz    float64
	SweepDuration time.Duration

	// Realtime paces generation with a ticker; otherwise ReadSamples returns
	// the next block immediately.
	Realtime bool

	// Duration bounds the source; zero means endless.
	Duration time.Duration

	Seed uint64 // Noise seed (default: 1)
}

// DefaultToneConfig returns a 440 Hz stereo sine at 44.1 kHz.
func DefaultToneConfig() ToneConfig {
	return ToneConfig{
		SampleRate:    44100,
		Channels:      2,
		FrameSize:     SamplesPerFrame,
		Pattern:       ToneSine,
		Frequency:     440.0,
		Amplitude:     0.5,
		SweepStartHz:  200,
		SweepEndHz:    2000,
		SweepDuration: 2 * time.Second,
		Seed:          1,
	}
}

// ToneSource is an AudioSource producing synthetic S16 PCM.
type ToneSource struct {
	config ToneConfig

	phase     float64
	generated uint64 // Samples per channel produced so far
	limit     uint64 // 0 = endless
	rngState  uint64

	running   atomic.Bool
	closed    atomic.Bool
	cancel    context.CancelFunc
	samplesCh chan *AudioSamples
	done      chan struct{}
	callback  AudioSamplesCallback

	genMu sync.Mutex
	mu    sync.RWMutex
}

// NewToneSource creates a tone source; zero config fields take defaults.
func NewToneSource(config ToneConfig) *ToneSource {
	def := DefaultToneConfig()
	if config.SampleRate <= 0 {
		config.SampleRate = def.SampleRate
	}
	if config.Channels <= 0 {
		config.Channels = def.Channels
	}
	if config.FrameSize <= 0 {
		config.FrameSize = def.FrameSize
	}
	if config.Frequency <= 0 {
		config.Frequency = def.Frequency
	}
	if config.Amplitude <= 0 {
		config.Amplitude = def.Amplitude
	}
	config.Amplitude = min(config.Amplitude, 1.0)
	if config.SweepStartHz <= 0 {
		config.SweepStartHz = def.SweepStartHz
	}
	if config.SweepEndHz <= 0 {
		config.SweepEndHz = def.SweepEndHz
	}
	if config.SweepDuration <= 0 {
		config.SweepDuration = def.SweepDuration
	}
	if config.Seed == 0 {
		config.Seed = def.Seed
	}

	s := &ToneSource{
		config:    config,
		rngState:  config.Seed,
		samplesCh: make(chan *AudioSamples, 2),
		done:      make(chan struct{}),
	}
	if config.Duration > 0 {
		s.limit = uint64(math.Round(config.Duration.Seconds() * float64(config.SampleRate)))
	}
	return s
}

// Start begins generation. Only realtime sources run a goroutine.
func (s *ToneSource) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSourceClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("source already running")
	}
	if !s.config.Realtime {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	go s.generateLoop(ctx)
	return nil
}

// Stop halts generation.
func (s *ToneSource) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Close stops the source and unblocks readers.
func (s *ToneSource) Close() error {
	s.Stop()
	if s.closed.CompareAndSwap(false, true) {
		close(s.done)
	}
	return nil
}

// ReadSamples returns the next block of samples, or io.EOF once Duration
// has been produced.
func (s *ToneSource) ReadSamples(ctx context.Context) (*AudioSamples, error) {
	if s.closed.Load() {
		return nil, ErrSourceClosed
	}
	if !s.config.Realtime {
		return s.next()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrSourceClosed
	case samples := <-s.samplesCh:
		if samples == nil {
			return nil, io.EOF
		}
		return samples, nil
	}
}

// SetCallback sets the push-mode callback of a realtime source.
func (s *ToneSource) SetCallback(cb AudioSamplesCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callback = cb
}

// SampleRate returns the audio sample rate.
func (s *ToneSource) SampleRate() int { return s.config.SampleRate }

// Channels returns the number of audio channels.
func (s *ToneSource) Channels() int { return s.config.Channels }

func (s *ToneSource) generateLoop(ctx context.Context) {
	frameDuration := time.Duration(float64(s.config.FrameSize) / float64(s.config.SampleRate) * float64(time.Second))
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			samples, err := s.next()

			s.mu.RLock()
			cb := s.callback
			s.mu.RUnlock()

			if err != nil {
				// nil marks end of stream for readers
				select {
				case s.samplesCh <- nil:
				case <-ctx.Done():
				}
				return
			}
			if cb != nil {
				cb(samples)
				continue
			}
			select {
			case s.samplesCh <- samples:
			default:
				// Reader too slow; drop
			}
		}
	}
}

// next generates one block.
func (s *ToneSource) next() (*AudioSamples, error) {
	s.genMu.Lock()
	defer s.genMu.Unlock()

	n := uint64(s.config.FrameSize)
	if s.limit > 0 {
		if s.generated >= s.limit {
			return nil, io.EOF
		}
		n = min(n, s.limit-s.generated)
	}

	data := make([]byte, int(n)*s.config.Channels*2)
	s.fill(data, int(n))

	samples := &AudioSamples{
		Data:        data,
		SampleRate:  s.config.SampleRate,
		Channels:    s.config.Channels,
		SampleCount: int(n),
		Format:      AudioFormatS16,
		Timestamp:   int64(time.Duration(s.generated) * time.Second / time.Duration(s.config.SampleRate)),
	}
	s.generated += n
	return samples, nil
}

func (s *ToneSource) fill(data []byte, frames int) {
	amplitude := s.config.Amplitude * math.MaxInt16
	rate := float64(s.config.SampleRate)
	freq := s.config.Frequency
	if s.config.Pattern == ToneSweep {
		sweep := rate * s.config.SweepDuration.Seconds()
		progress := math.Mod(float64(s.generated), sweep) / sweep
		lo, hi := math.Log(s.config.SweepStartHz), math.Log(s.config.SweepEndHz)
		freq = math.Exp(lo + progress*(hi-lo))
	}
	step := 2 * math.Pi * freq / rate

	idx := 0
	for i := 0; i < frames; i++ {
		var v float64
		switch s.config.Pattern {
		case ToneSine, ToneSweep:
			v = math.Sin(s.phase)
		case ToneSquare:
			v = 1
			if math.Sin(s.phase) < 0 {
				v = -1
			}
		case ToneNoise:
			// xorshift64
			s.rngState ^= s.rngState << 13
			s.rngState ^= s.rngState >> 7
			s.rngState ^= s.rngState << 17
			v = float64(s.rngState)/float64(^uint64(0))*2 - 1
		}
		s.phase = math.Mod(s.phase+step, 2*math.Pi)

		sample := uint16(int16(amplitude * v))
		for c := 0; c < s.config.Channels; c++ {
			binary.LittleEndian.PutUint16(data[idx:], sample)
			idx += 2
		}
	}
}

func init() {
	RegisterAudioSource(SourceTypeTone, func(config any) (AudioSource, error) {
		cfg, ok := config.(*ToneConfig)
		if !ok {
			def := DefaultToneConfig()
			cfg = &def
		}
		return NewToneSource(*cfg), nil
	})
}
