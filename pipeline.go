package aacenc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// PipelineState represents the state of an encode pipeline.
type PipelineState int

const (
	PipelineStateIdle    PipelineState = iota // Not started
	PipelineStateRunning                      // Processing audio
	PipelineStateStopped                      // Stopped or source exhausted
)

func (s PipelineState) String() string {
	switch s {
	case PipelineStateIdle:
		return "idle"
	case PipelineStateRunning:
		return "running"
	case PipelineStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// FrameSink consumes encoded audio that is not carried over RTP, e.g. an
// RTMP publisher.
type FrameSink interface {
	WriteAudio(audio *EncodedAudio) error
}

// AudioPipelineConfig configures an audio encode pipeline. Either Writer
// (with Packetizer) or Sink must be set; both may be.
type AudioPipelineConfig struct {
	Source     AudioSource   // Raw sample source
	Encoder    AudioEncoder  // Encoder
	Packetizer RTPPacketizer // RTP packetizer, required with Writer
	Writer     RTPWriter     // RTP output
	Sink       FrameSink     // Encoded frame output
	OnError    func(error)   // Error callback
}

// AudioPipelineStats provides pipeline statistics.
type AudioPipelineStats struct {
	SamplesCaptured uint64
	FramesEncoded   uint64
	PacketsSent     uint64
	BytesSent       uint64
	EncodeTimeUs    uint64
	Errors          uint64
}

// AudioEncodePipeline handles: AudioSource -> AudioEncoder -> Packetizer ->
// RTPWriter and/or FrameSink.
type AudioEncodePipeline struct {
	source     AudioSource
	encoder    AudioEncoder
	packetizer RTPPacketizer
	writer     RTPWriter
	sink       FrameSink

	state  atomic.Int32
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}

	stats   AudioPipelineStats
	statsMu sync.Mutex

	onError func(error)
	mu      sync.Mutex
}

// NewAudioEncodePipeline creates a new audio encoding pipeline.
func NewAudioEncodePipeline(config AudioPipelineConfig) (*AudioEncodePipeline, error) {
	if config.Source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if config.Encoder == nil {
		return nil, fmt.Errorf("encoder is required")
	}
	if config.Writer == nil && config.Sink == nil {
		return nil, fmt.Errorf("writer or sink is required")
	}
	if config.Writer != nil && config.Packetizer == nil {
		return nil, fmt.Errorf("packetizer is required with writer")
	}
	if config.Source.Channels() != config.Encoder.Config().Channels {
		return nil, fmt.Errorf("%w: source has %d channels, encoder %d",
			ErrInvalidArgument, config.Source.Channels(), config.Encoder.Config().Channels)
	}

	p := &AudioEncodePipeline{
		source:     config.Source,
		encoder:    config.Encoder,
		packetizer: config.Packetizer,
		writer:     config.Writer,
		sink:       config.Sink,
		onError:    config.OnError,
		done:       make(chan struct{}),
	}
	p.state.Store(int32(PipelineStateIdle))
	return p, nil
}

// Start starts the pipeline. ctx bounds the pipeline's lifetime.
func (p *AudioEncodePipeline) Start(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(PipelineStateIdle), int32(PipelineStateRunning)) {
		return fmt.Errorf("pipeline already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	if err := p.source.Start(ctx); err != nil {
		cancel()
		p.state.Store(int32(PipelineStateIdle))
		return fmt.Errorf("failed to start source: %w", err)
	}

	p.wg.Add(1)
	go p.processLoop(ctx)
	return nil
}

// Stop stops the pipeline and waits for the loop to exit.
func (p *AudioEncodePipeline) Stop() error {
	if PipelineState(p.state.Load()) == PipelineStateIdle {
		return nil
	}

	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	p.state.Store(int32(PipelineStateStopped))
	return p.source.Stop()
}

// Close stops the pipeline and closes the source and encoder.
func (p *AudioEncodePipeline) Close() error {
	p.Stop()
	return errors.Join(p.source.Close(), p.encoder.Close())
}

// Done is closed when the loop exits, on Stop or at the end of the source.
func (p *AudioEncodePipeline) Done() <-chan struct{} { return p.done }

// State returns the current pipeline state.
func (p *AudioEncodePipeline) State() PipelineState {
	return PipelineState(p.state.Load())
}

// Stats returns pipeline statistics.
func (p *AudioEncodePipeline) Stats() AudioPipelineStats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

func (p *AudioEncodePipeline) processLoop(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.done)

	for {
		samples, err := p.source.ReadSamples(ctx)
		if errors.Is(err, io.EOF) {
			p.finish()
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrSourceClosed) {
				p.state.Store(int32(PipelineStateStopped))
				return
			}
			p.handleError(err)
			continue
		}

		p.statsMu.Lock()
		p.stats.SamplesCaptured += uint64(samples.SampleCount)
		p.statsMu.Unlock()

		encodeStart := time.Now()
		audio, err := p.encoder.Encode(samples)
		encodeTime := time.Since(encodeStart)
		if err != nil {
			p.handleError(err)
			continue
		}

		p.statsMu.Lock()
		p.stats.EncodeTimeUs += uint64(encodeTime.Microseconds())
		p.statsMu.Unlock()

		p.deliver(audio)
	}
}

// finish flushes the encoder at the end of the source.
func (p *AudioEncodePipeline) finish() {
	audio, err := p.encoder.Flush()
	if err != nil {
		p.handleError(err)
	} else {
		p.deliver(audio)
	}
	p.state.Store(int32(PipelineStateStopped))
	Logger().Debug("audio pipeline drained", zap.Uint64("frames", p.Stats().FramesEncoded))
}

func (p *AudioEncodePipeline) deliver(audio *EncodedAudio) {
	if audio == nil || len(audio.Frames) == 0 {
		return // Encoder buffering
	}

	p.statsMu.Lock()
	p.stats.FramesEncoded += uint64(len(audio.Frames))
	p.statsMu.Unlock()

	if p.sink != nil {
		if err := p.sink.WriteAudio(audio); err != nil {
			p.handleError(err)
		}
	}
	if p.writer == nil {
		return
	}

	for i, f := range audio.Frames {
		packets, err := p.packetizer.PacketizeToBytes(&EncodedFrame{
			Data:      f,
			Timestamp: audio.Timestamp + uint32(i*SamplesPerFrame),
			Duration:  SamplesPerFrame,
		})
		if err != nil {
			p.handleError(err)
			continue
		}
		for _, pkt := range packets {
			if err := p.writer.WriteRTPBytes(pkt); err != nil {
				p.handleError(err)
				continue
			}
			p.statsMu.Lock()
			p.stats.PacketsSent++
			p.stats.BytesSent += uint64(len(pkt))
			p.statsMu.Unlock()
		}
	}
}

func (p *AudioEncodePipeline) handleError(err error) {
	p.statsMu.Lock()
	p.stats.Errors++
	p.statsMu.Unlock()

	p.mu.Lock()
	cb := p.onError
	p.mu.Unlock()

	if cb != nil {
		cb(err)
	} else {
		Logger().Warn("audio pipeline error", zap.Error(err))
	}
}
