package aacenc

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// WriterConfig configures a Writer.
type WriterConfig struct {
	SampleRate int // Input sample rate (default: 44100)
	Channels   int // Input channels (default: 2)
	BitrateBps int // Target bitrate (default: 128000)

	// Raw writes bare access units back to back instead of ADTS frames.
	Raw bool
}

// Writer is an io.WriteCloser that encodes interleaved S16LE PCM written to
// it and writes the AAC stream to the underlying writer.
type Writer struct {
	w   io.Writer
	enc *AACEncoder

	frames uint64
	bytes  uint64
	err    error
	closed bool
	mu     sync.Mutex
}

// NewWriter opens an encoder and returns a Writer feeding w.
func NewWriter(w io.Writer, cfg WriterConfig) (*Writer, error) {
	enc, err := NewAACEncoder(AudioEncoderConfig{
		Codec:      AudioCodecAAC,
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
		BitrateBps: cfg.BitrateBps,
		ADTS:       !cfg.Raw,
	})
	if err != nil {
		return nil, err
	}
	return newWriter(w, enc), nil
}

func newWriter(w io.Writer, enc *AACEncoder) *Writer {
	return &Writer{w: w, enc: enc}
}

// Write encodes p. Output is written as soon as the codec completes a frame.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}
	if w.err != nil {
		return 0, w.err
	}

	audio, err := w.enc.EncodePCM(p)
	if werr := w.writeFrames(audio); werr != nil {
		return 0, werr
	}
	if err != nil {
		w.err = err
		return 0, err
	}
	return len(p), nil
}

// Close pads the last partial frame with silence, writes it and releases the
// encoder. The underlying writer is not closed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var flushErr error
	if w.err == nil {
		audio, err := w.enc.Flush()
		flushErr = errors.Join(w.writeFrames(audio), err)
	}
	return errors.Join(flushErr, w.enc.Close())
}

// Frames returns the number of frames written.
func (w *Writer) Frames() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// BytesWritten returns the number of encoded bytes written.
func (w *Writer) BytesWritten() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bytes
}

// Encoder returns the underlying encoder.
func (w *Writer) Encoder() *AACEncoder { return w.enc }

func (w *Writer) writeFrames(audio *EncodedAudio) error {
	if audio == nil {
		return nil
	}
	for _, f := range audio.Frames {
		n, err := w.w.Write(f)
		w.bytes += uint64(n)
		if err != nil {
			w.err = fmt.Errorf("aacenc: write frame: %w", err)
			return w.err
		}
		w.frames++
	}
	return nil
}
