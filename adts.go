package aacenc

import (
	"errors"
	"fmt"

	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
)

// ADTSHeaderSize is the size of an ADTS header without CRC.
const ADTSHeaderSize = 7

// ErrInvalidADTS is returned for malformed or truncated ADTS frames.
var ErrInvalidADTS = errors.New("aacenc: invalid ADTS frame")

// ADTSHeader describes one ADTS frame.
type ADTSHeader struct {
	ObjectType  int
	SampleRate  int
	Channels    int
	FrameLength int // Header plus payload
}

// decodeADTS decodes the ADTS frame at the start of buf.
func decodeADTS(buf []byte) (*mpeg4audio.ADTSPacket, int, error) {
	if !IsADTS(buf) {
		return nil, 0, fmt.Errorf("%w: no ADTS syncword", ErrInvalidADTS)
	}
	n := int(buf[3]&0x03)<<11 | int(buf[4])<<3 | int(buf[5]>>5)
	if n > len(buf) {
		return nil, 0, fmt.Errorf("%w: frame of %d bytes, have %d", ErrInvalidADTS, n, len(buf))
	}

	var pkts mpeg4audio.ADTSPackets
	if err := pkts.Unmarshal(buf[:n]); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidADTS, err)
	}
	return pkts[0], n, nil
}

// ParseADTSHeader decodes the header of the ADTS frame at the start of buf.
// The whole frame must be present.
func ParseADTSHeader(buf []byte) (ADTSHeader, error) {
	pkt, n, err := decodeADTS(buf)
	if err != nil {
		return ADTSHeader{}, err
	}
	return ADTSHeader{
		ObjectType:  int(pkt.Type),
		SampleRate:  pkt.SampleRate,
		Channels:    pkt.ChannelCount,
		FrameLength: n,
	}, nil
}

// MarshalADTS returns au prefixed with a 7-byte ADTS header.
func MarshalADTS(objectType, sampleRate, channels int, au []byte) ([]byte, error) {
	if objectType < 1 || objectType > 4 {
		return nil, fmt.Errorf("%w: object type %d", ErrInvalidArgument, objectType)
	}
	if len(au) > mpeg4audio.MaxAccessUnitSize {
		return nil, fmt.Errorf("%w: access unit of %d bytes", ErrInvalidArgument, len(au))
	}
	buf, err := mpeg4audio.ADTSPackets{{
		Type:         mpeg4audio.ObjectType(objectType),
		SampleRate:   sampleRate,
		ChannelCount: channels,
		AU:           au,
	}}.Marshal()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return buf, nil
}

// SplitADTS splits a stream of ADTS frames into whole frames, headers
// included. Trailing bytes that do not form a whole frame are an error.
func SplitADTS(stream []byte) ([][]byte, error) {
	if len(stream) == 0 {
		return nil, nil
	}
	var pkts mpeg4audio.ADTSPackets
	if err := pkts.Unmarshal(stream); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidADTS, err)
	}

	frames := make([][]byte, 0, len(pkts))
	pos := 0
	for _, pkt := range pkts {
		n := ADTSHeaderSize + len(pkt.AU)
		frames = append(frames, stream[pos:pos+n])
		pos += n
	}
	return frames, nil
}

// StripADTS returns the raw access unit of a single ADTS frame.
func StripADTS(frame []byte) ([]byte, error) {
	pkt, _, err := decodeADTS(frame)
	if err != nil {
		return nil, err
	}
	return pkt.AU, nil
}

// AudioSpecificConfig builds the MPEG-4 AudioSpecificConfig used by SDP
// (config=) and FLV sequence headers.
func AudioSpecificConfig(objectType, sampleRate, channels int) ([]byte, error) {
	if SampleRateIndex(sampleRate) < 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidArgument, sampleRate)
	}
	if objectType < 1 || objectType > 30 {
		return nil, fmt.Errorf("%w: object type %d", ErrInvalidArgument, objectType)
	}
	asc, err := mpeg4audio.AudioSpecificConfig{
		Type:         mpeg4audio.ObjectType(objectType),
		SampleRate:   sampleRate,
		ChannelCount: channels,
	}.Marshal()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return asc, nil
}

// ParseAudioSpecificConfig decodes the object type, sample rate and channel
// count of an AudioSpecificConfig.
func ParseAudioSpecificConfig(asc []byte) (objectType, sampleRate, channels int, err error) {
	var conf mpeg4audio.AudioSpecificConfig
	if err := conf.Unmarshal(asc); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: AudioSpecificConfig %x: %v", ErrInvalidArgument, asc, err)
	}
	return int(conf.Type), conf.SampleRate, conf.ChannelCount, nil
}
