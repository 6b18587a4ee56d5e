package aacenc

import (
	"fmt"
	"io"
	"sync"
)

// AudioEncoderConfig configures an audio encoder.
type AudioEncoderConfig struct {
	Codec    AudioCodec // Codec type (AAC)
	Provider Provider   // Provider to use (ProviderAuto = library chooses)

	SampleRate  int   // Input sample rate (e.g., 44100)
	Channels    int   // Number of channels (1 or 2)
	BitrateBps  int   // Target bitrate in bps
	PayloadType uint8 // RTP payload type

	// AAC-specific options
	ADTS bool // Prefix every access unit with an ADTS header
}

// DefaultAudioEncoderConfig returns a default audio encoder configuration.
func DefaultAudioEncoderConfig(codec AudioCodec) AudioEncoderConfig {
	return AudioEncoderConfig{
		Codec:       codec,
		Provider:    ProviderAuto,
		SampleRate:  44100,
		Channels:    2,
		BitrateBps:  128000,
		PayloadType: codec.DefaultPayloadType(),
		ADTS:        true,
	}
}

// withDefaults fills zero fields from DefaultAudioEncoderConfig.
func (c AudioEncoderConfig) withDefaults() AudioEncoderConfig {
	def := DefaultAudioEncoderConfig(AudioCodecAAC)
	if c.Codec == AudioCodecUnknown {
		c.Codec = AudioCodecAAC
	}
	if c.SampleRate == 0 {
		c.SampleRate = def.SampleRate
	}
	if c.Channels == 0 {
		c.Channels = def.Channels
	}
	if c.BitrateBps == 0 {
		c.BitrateBps = def.BitrateBps
	}
	if c.PayloadType == 0 {
		c.PayloadType = def.PayloadType
	}
	return c
}

// AudioEncoderStats provides audio encoding metrics.
type AudioEncoderStats struct {
	FramesEncoded  uint64
	BytesEncoded   uint64
	SamplesEncoded uint64 // Per-channel samples fed to the codec
	EncodingTimeUs uint64
	Errors         uint64
}

// AudioEncoder encodes raw audio samples to compressed bitstream.
type AudioEncoder interface {
	io.Closer

	// Encode feeds samples to the codec and returns every frame it
	// completed. Frames is empty while the codec is still buffering.
	Encode(samples *AudioSamples) (*EncodedAudio, error)

	// Flush pads buffered input with silence and returns the frames that
	// completes.
	Flush() (*EncodedAudio, error)

	Provider() Provider
	Config() AudioEncoderConfig
	Codec() AudioCodec
	Stats() AudioEncoderStats
}

// --- Registry ---

type audioEncoderFactory func(AudioEncoderConfig) (AudioEncoder, error)

type encoderRegistry struct {
	mu sync.RWMutex

	// Provider-aware registry: codec -> provider -> factory
	audioProviders map[AudioCodec]map[Provider]audioEncoderFactory

	// Default provider per codec
	audioDefaults map[AudioCodec]Provider
}

var globalEncoderRegistry = &encoderRegistry{
	audioProviders: make(map[AudioCodec]map[Provider]audioEncoderFactory),
	audioDefaults:  make(map[AudioCodec]Provider),
}

// registerAudioEncoder registers an audio encoder factory for a codec+provider.
func registerAudioEncoder(codec AudioCodec, provider Provider, factory audioEncoderFactory) {
	globalEncoderRegistry.mu.Lock()
	defer globalEncoderRegistry.mu.Unlock()

	if globalEncoderRegistry.audioProviders[codec] == nil {
		globalEncoderRegistry.audioProviders[codec] = make(map[Provider]audioEncoderFactory)
	}
	globalEncoderRegistry.audioProviders[codec][provider] = factory

	// Prefer permissive licenses
	current, exists := globalEncoderRegistry.audioDefaults[codec]
	if !exists || (provider.License().Permissive() && !current.License().Permissive()) {
		globalEncoderRegistry.audioDefaults[codec] = provider
	}
}

// SetDefaultAudioEncoderProvider sets the default provider for an audio codec.
func SetDefaultAudioEncoderProvider(codec AudioCodec, provider Provider) {
	globalEncoderRegistry.mu.Lock()
	defer globalEncoderRegistry.mu.Unlock()
	globalEncoderRegistry.audioDefaults[codec] = provider
}

// NewAudioEncoder creates an audio encoder from the registered providers.
// A zero Codec means AAC.
func NewAudioEncoder(config AudioEncoderConfig) (AudioEncoder, error) {
	if config.Codec == AudioCodecUnknown {
		config.Codec = AudioCodecAAC
	}

	globalEncoderRegistry.mu.RLock()
	providers := globalEncoderRegistry.audioProviders[config.Codec]
	p := config.Provider
	if p == ProviderAuto {
		p = globalEncoderRegistry.audioDefaults[config.Codec]
	}
	factory, ok := providers[p]
	globalEncoderRegistry.mu.RUnlock()

	if providers == nil {
		return nil, fmt.Errorf("%w: no providers for %s", ErrCodecNotSupported, config.Codec)
	}
	if !ok || !p.Available() {
		return nil, fmt.Errorf("%w: %s for %s", ErrProviderNotFound, p, config.Codec)
	}
	return factory(config)
}

// AudioEncoderProviders returns available providers for an audio codec.
func AudioEncoderProviders(codec AudioCodec) []Provider {
	globalEncoderRegistry.mu.RLock()
	defer globalEncoderRegistry.mu.RUnlock()

	providers := globalEncoderRegistry.audioProviders[codec]
	result := make([]Provider, 0, len(providers))
	for p := range providers {
		if p.Available() {
			result = append(result, p)
		}
	}
	return result
}
