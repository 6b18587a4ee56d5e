package aacenc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// ReaderConfig configures a ReaderSource.
type ReaderConfig struct {
	Reader     io.Reader // Interleaved S16LE PCM
	SampleRate int       // Sample rate (default: 44100)
	Channels   int       // Number of channels (default: 2)
	FrameSize  int       // Samples per read (default: 1024)

	// Realtime delays each read until its samples are due on the wall
	// clock, e.g. when publishing a file live.
	Realtime bool
}

// ReaderSource is an AudioSource over raw PCM from an io.Reader. It returns
// io.EOF when the reader is exhausted; a trailing partial sample is dropped.
type ReaderSource struct {
	config ReaderConfig

	generated uint64
	started   time.Time
	running   atomic.Bool
	closed    atomic.Bool
	callback  AudioSamplesCallback

	readMu sync.Mutex
	mu     sync.RWMutex
}

// NewReaderSource creates a source reading from config.Reader.
func NewReaderSource(config ReaderConfig) (*ReaderSource, error) {
	if config.Reader == nil {
		return nil, fmt.Errorf("%w: nil reader", ErrInvalidArgument)
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 44100
	}
	if config.Channels <= 0 {
		config.Channels = 2
	}
	if config.FrameSize <= 0 {
		config.FrameSize = SamplesPerFrame
	}
	return &ReaderSource{config: config}, nil
}

// Start marks the source running and starts the realtime clock.
func (s *ReaderSource) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSourceClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("source already running")
	}
	s.readMu.Lock()
	s.started = time.Now()
	s.readMu.Unlock()
	return nil
}

// Stop halts the source; reads after Stop are still served.
func (s *ReaderSource) Stop() error {
	s.running.Store(false)
	return nil
}

// Close closes the underlying reader when it is an io.Closer.
func (s *ReaderSource) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.Stop()
	if c, ok := s.config.Reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ReadSamples reads the next block of up to FrameSize samples.
func (s *ReaderSource) ReadSamples(ctx context.Context) (*AudioSamples, error) {
	if s.closed.Load() {
		return nil, ErrSourceClosed
	}

	s.readMu.Lock()
	defer s.readMu.Unlock()

	if s.config.Realtime && !s.started.IsZero() {
		due := s.started.Add(time.Duration(s.generated) * time.Second / time.Duration(s.config.SampleRate))
		if wait := time.Until(due); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	frameBytes := s.config.Channels * 2
	buf := make([]byte, s.config.FrameSize*frameBytes)
	n, err := io.ReadFull(s.config.Reader, buf)
	n -= n % frameBytes
	if n == 0 {
		if err == nil || errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return nil, err
	}
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}

	count := n / frameBytes
	samples := &AudioSamples{
		Data:        buf[:n],
		SampleRate:  s.config.SampleRate,
		Channels:    s.config.Channels,
		SampleCount: count,
		Format:      AudioFormatS16,
		Timestamp:   int64(time.Duration(s.generated) * time.Second / time.Duration(s.config.SampleRate)),
	}
	s.generated += uint64(count)

	s.mu.RLock()
	cb := s.callback
	s.mu.RUnlock()
	if cb != nil {
		cb(samples)
	}
	return samples, nil
}

// SetCallback sets a callback observing every block read.
func (s *ReaderSource) SetCallback(cb AudioSamplesCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callback = cb
}

// SampleRate returns the audio sample rate.
func (s *ReaderSource) SampleRate() int { return s.config.SampleRate }

// Channels returns the number of audio channels.
func (s *ReaderSource) Channels() int { return s.config.Channels }

func init() {
	RegisterAudioSource(SourceTypeReader, func(config any) (AudioSource, error) {
		cfg, ok := config.(*ReaderConfig)
		if !ok {
			return nil, fmt.Errorf("%w: reader source needs *ReaderConfig", ErrInvalidArgument)
		}
		return NewReaderSource(*cfg)
	})
}
