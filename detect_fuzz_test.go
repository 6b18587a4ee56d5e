package aacenc

import (
	"testing"

	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
)

// FuzzParseADTS tests the ADTS parsers with random inputs.
// Run with: go test -fuzz=FuzzParseADTS -fuzztime=30s
func FuzzParseADTS(f *testing.F) {
	seeds := [][]byte{
		{0xff, 0xf1, 0x50, 0x80, 0x0c, 0x9f, 0xfc},
		{0xff, 0xf1, 0x50, 0x80, 0x01, 0x1f, 0xfc, 0x21},
		{0xff, 0xf0, 0x50, 0x80, 0x01, 0x3f, 0xfc, 0x00, 0x00},
		{0xff, 0xf1, 0x7c, 0x80, 0x0c, 0x9f, 0xfc},
		{0xff, 0xfb, 0x90, 0x64},
		{},
		{0xff},
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		if h, err := ParseADTSHeader(data); err == nil {
			assert.GreaterOrEqual(t, h.FrameLength, ADTSHeaderSize)
			assert.LessOrEqual(t, h.FrameLength, len(data))
			assert.GreaterOrEqual(t, SampleRateIndex(h.SampleRate), 0, "sample rate %d", h.SampleRate)
		}

		frames, _ := SplitADTS(data)
		total := 0
		for _, fr := range frames {
			total += len(fr)
		}
		assert.LessOrEqual(t, total, len(data))

		if au, err := StripADTS(data); err == nil {
			assert.Less(t, len(au), len(data))
		}
		DetectAudioCodec(data)
	})
}

// FuzzAACDepacketize tests RFC 3640 parsing with random payloads.
func FuzzAACDepacketize(f *testing.F) {
	f.Add([]byte{0x00, 0x10, 0x00, 0x18, 1, 2, 3}, true)
	f.Add([]byte{0x00, 0x20, 0x00, 0x08, 0x00, 0x10, 9, 8, 7}, true)
	f.Add([]byte{0x00, 0x10, 0x03, 0x20, 1}, false)
	f.Add([]byte{0x00}, false)

	f.Fuzz(func(t *testing.T, payload []byte, marker bool) {
		d, err := NewAACDepacketizer()
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 3; i++ {
			frames, err := d.DepacketizeAll(&rtp.Packet{
				Header:  rtp.Header{Marker: marker, SequenceNumber: uint16(i)},
				Payload: payload,
			})
			if err != nil {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				continue
			}
			for _, fr := range frames {
				assert.LessOrEqual(t, len(fr.Data), mpeg4audio.MaxAccessUnitSize)
			}
		}
	})
}
