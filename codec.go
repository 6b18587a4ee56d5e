package aacenc

import "github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"

// AudioCodec identifies the audio codec type.
type AudioCodec int

const (
	AudioCodecUnknown AudioCodec = iota
	AudioCodecAAC
)

func (c AudioCodec) String() string {
	switch c {
	case AudioCodecAAC:
		return "AAC"
	default:
		return "Unknown"
	}
}

// MimeType returns the RTP MIME type for this codec (RFC 3640).
func (c AudioCodec) MimeType() string {
	switch c {
	case AudioCodecAAC:
		return "audio/mpeg4-generic"
	default:
		return ""
	}
}

// DefaultPayloadType returns a typical dynamic payload type for this codec.
// Note: Actual payload type is negotiated via SDP.
func (c AudioCodec) DefaultPayloadType() uint8 {
	switch c {
	case AudioCodecAAC:
		return 97
	default:
		return 96
	}
}

// ClockRate returns the RTP clock rate for this codec at the given sample
// rate. AAC uses the sample rate itself.
func (c AudioCodec) ClockRate(sampleRate int) uint32 {
	if sampleRate <= 0 {
		return 48000
	}
	return uint32(sampleRate)
}

// SamplesPerFrame is the number of PCM samples per channel in one AAC-LC
// access unit.
const SamplesPerFrame = mpeg4audio.SamplesPerAccessUnit

// ObjectTypeAACLC is the AAC-LC audio object type, the only profile
// libvo-aacenc produces.
const ObjectTypeAACLC = int(mpeg4audio.ObjectTypeAACLC)

// sampleRates is the sampling_frequency_index table (ISO 14496-3).
var sampleRates = [...]int{
	96000, 88200, 64000, 48000, 44100, 32000,
	24000, 22050, 16000, 12000, 11025, 8000, 7350,
}

// SampleRateIndex returns the sampling_frequency_index of rate, or -1 when the
// rate has no index.
func SampleRateIndex(rate int) int {
	for i, r := range sampleRates {
		if r == rate {
			return i
		}
	}
	return -1
}

// SampleRateFromIndex returns the rate for a sampling_frequency_index, or 0.
func SampleRateFromIndex(idx int) int {
	if idx < 0 || idx >= len(sampleRates) {
		return 0
	}
	return sampleRates[idx]
}

// IsSupportedSampleRate reports whether libvo-aacenc accepts rate.
func IsSupportedSampleRate(rate int) bool {
	return rate >= 8000 && rate <= 96000 && SampleRateIndex(rate) >= 0
}
