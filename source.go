package aacenc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrSourceClosed is returned by sources after Close.
var ErrSourceClosed = errors.New("aacenc: source closed")

// SourceType identifies the type of audio source.
type SourceType int

const (
	SourceTypeUnknown SourceType = iota
	SourceTypeTone               // Synthetic tone generator
	SourceTypeReader             // PCM read from an io.Reader
)

func (s SourceType) String() string {
	switch s {
	case SourceTypeTone:
		return "Tone"
	case SourceTypeReader:
		return "Reader"
	default:
		return "Unknown"
	}
}

// AudioSamplesCallback is called when audio samples are available (push mode).
type AudioSamplesCallback func(samples *AudioSamples)

// AudioSource produces raw audio samples.
type AudioSource interface {
	io.Closer

	// Start begins capture/generation.
	Start(ctx context.Context) error

	// Stop halts capture/generation.
	Stop() error

	// ReadSamples reads the next audio samples (blocking). io.EOF marks the
	// end of a finite source.
	ReadSamples(ctx context.Context) (*AudioSamples, error)

	// SetCallback sets push-mode callback for sample delivery.
	SetCallback(cb AudioSamplesCallback)

	// SampleRate returns the audio sample rate.
	SampleRate() int

	// Channels returns the number of audio channels.
	Channels() int
}

// AudioSourceFactory creates an audio source with the given configuration.
type AudioSourceFactory func(config any) (AudioSource, error)

type sourceRegistry struct {
	audioFactories map[SourceType]AudioSourceFactory
	mu             sync.RWMutex
}

var globalSourceRegistry = &sourceRegistry{
	audioFactories: make(map[SourceType]AudioSourceFactory),
}

// RegisterAudioSource registers an audio source factory for a source type.
func RegisterAudioSource(stype SourceType, factory AudioSourceFactory) {
	globalSourceRegistry.mu.Lock()
	defer globalSourceRegistry.mu.Unlock()
	globalSourceRegistry.audioFactories[stype] = factory
}

// CreateAudioSource creates an audio source of the specified type.
func CreateAudioSource(stype SourceType, config any) (AudioSource, error) {
	globalSourceRegistry.mu.RLock()
	factory, ok := globalSourceRegistry.audioFactories[stype]
	globalSourceRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("audio source type not available: %v", stype)
	}
	return factory(config)
}

// IsAudioSourceAvailable checks if an audio source type is available.
func IsAudioSourceAvailable(stype SourceType) bool {
	globalSourceRegistry.mu.RLock()
	defer globalSourceRegistry.mu.RUnlock()
	_, ok := globalSourceRegistry.audioFactories[stype]
	return ok
}
