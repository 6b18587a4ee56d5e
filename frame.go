// Core frame and sample types used across the package.
package aacenc

// AudioFormat represents audio sample formats.
type AudioFormat int

const (
	AudioFormatS16 AudioFormat = iota // Signed 16-bit PCM, little-endian
	AudioFormatF32                    // 32-bit float
)

func (a AudioFormat) String() string {
	switch a {
	case AudioFormatS16:
		return "S16"
	case AudioFormatF32:
		return "F32"
	default:
		return "Unknown"
	}
}

// BytesPerSample returns the number of bytes per sample for this format.
func (a AudioFormat) BytesPerSample() int {
	switch a {
	case AudioFormatS16:
		return 2
	case AudioFormatF32:
		return 4
	default:
		return 0
	}
}

// AudioSamples represents raw audio samples.
type AudioSamples struct {
	Data        []byte      // Interleaved sample data
	SampleRate  int         // Sample rate (e.g., 44100)
	Channels    int         // Number of channels (1 = mono, 2 = stereo)
	SampleCount int         // Number of samples (per channel)
	Format      AudioFormat // Sample format
	Timestamp   int64       // Capture timestamp in nanoseconds
}

// Clone creates a deep copy of the audio samples.
func (s *AudioSamples) Clone() *AudioSamples {
	clone := &AudioSamples{
		SampleRate:  s.SampleRate,
		Channels:    s.Channels,
		SampleCount: s.SampleCount,
		Format:      s.Format,
		Timestamp:   s.Timestamp,
	}
	if s.Data != nil {
		clone.Data = make([]byte, len(s.Data))
		copy(clone.Data, s.Data)
	}
	return clone
}

// EncodedFrame holds one encoded access unit as carried over RTP.
type EncodedFrame struct {
	Data      []byte // Encoded access unit
	Timestamp uint32 // RTP timestamp (sample-rate clock for AAC)
	Duration  uint32 // Duration in RTP timestamp units
}

// Clone creates a deep copy of the encoded frame.
func (f *EncodedFrame) Clone() *EncodedFrame {
	clone := &EncodedFrame{
		Timestamp: f.Timestamp,
		Duration:  f.Duration,
	}
	if f.Data != nil {
		clone.Data = make([]byte, len(f.Data))
		copy(clone.Data, f.Data)
	}
	return clone
}

// EncodedAudio holds encoded audio data.
type EncodedAudio struct {
	Frames    [][]byte // Encoded access units, ADTS-framed when the encoder uses ADTS
	Timestamp uint32   // RTP timestamp of the first frame
	Duration  uint32   // Duration in samples of all frames
}

// Size returns the total number of encoded bytes.
func (a *EncodedAudio) Size() int {
	n := 0
	for _, f := range a.Frames {
		n += len(f)
	}
	return n
}

// Clone creates a deep copy of the encoded audio.
func (a *EncodedAudio) Clone() *EncodedAudio {
	clone := &EncodedAudio{
		Timestamp: a.Timestamp,
		Duration:  a.Duration,
	}
	if a.Frames != nil {
		clone.Frames = make([][]byte, len(a.Frames))
		for i, f := range a.Frames {
			clone.Frames[i] = append([]byte(nil), f...)
		}
	}
	return clone
}
