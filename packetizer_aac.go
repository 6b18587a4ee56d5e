package aacenc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bluenviron/gortsplib/v4/pkg/format/rtpmpeg4audio"
	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
	"github.com/pion/rtp"
	"go.uber.org/zap"
)

// RFC 3640 AAC-hbr mode: 13-bit AU-size, 3-bit AU-Index, no CTS/DTS.
const (
	aacSizeLength       = 13
	aacIndexLength      = 3
	aacIndexDeltaLength = 3
	aacPayloadPrefix    = 4 // AU-headers-length + one AU-header
	rtpHeaderSize       = 12

	// minAACMTU leaves room for one payload byte per fragment.
	minAACMTU = rtpHeaderSize + aacPayloadPrefix + 1
)

func newAACRTPEncoder(mtu int) (*rtpmpeg4audio.Encoder, error) {
	enc := &rtpmpeg4audio.Encoder{
		PayloadMaxSize:   mtu - rtpHeaderSize,
		SizeLength:       aacSizeLength,
		IndexLength:      aacIndexLength,
		IndexDeltaLength: aacIndexDeltaLength,
	}
	if err := enc.Init(); err != nil {
		return nil, err
	}
	return enc, nil
}

func newAACRTPDecoder() (*rtpmpeg4audio.Decoder, error) {
	dec := &rtpmpeg4audio.Decoder{
		SizeLength:       aacSizeLength,
		IndexLength:      aacIndexLength,
		IndexDeltaLength: aacIndexDeltaLength,
	}
	if err := dec.Init(); err != nil {
		return nil, err
	}
	return dec, nil
}

// AACPacketizer implements RTPPacketizer for mpeg4-generic AAC-hbr. Each
// access unit travels in its own packet; units larger than the MTU are
// fragmented and the marker bit flags the last fragment.
type AACPacketizer struct {
	enc         *rtpmpeg4audio.Encoder
	ssrc        uint32
	payloadType uint8
	mtu         int
	sequencer   rtp.Sequencer
	mu          sync.Mutex
}

// NewAACPacketizer creates a new AAC RTP packetizer. A zero mtu selects
// DefaultMTU.
func NewAACPacketizer(ssrc uint32, pt uint8, mtu int) (*AACPacketizer, error) {
	if mtu == 0 {
		mtu = DefaultMTU
	}
	if mtu < minAACMTU {
		return nil, fmt.Errorf("%w: mtu %d", ErrInvalidArgument, mtu)
	}
	enc, err := newAACRTPEncoder(mtu)
	if err != nil {
		return nil, err
	}
	return &AACPacketizer{
		enc:         enc,
		ssrc:        ssrc,
		payloadType: pt,
		mtu:         mtu,
		sequencer:   rtp.NewRandomSequencer(),
	}, nil
}

// Packetize converts one access unit to RTP packets. ADTS-framed input is
// stripped to the raw access unit first.
func (p *AACPacketizer) Packetize(frame *EncodedFrame) ([]*RTPPacket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	au := frame.Data
	if len(au) == 0 {
		return nil, nil
	}
	if IsADTS(au) {
		raw, err := StripADTS(au)
		if err != nil {
			return nil, err
		}
		au = raw
	}
	if len(au) > mpeg4audio.MaxAccessUnitSize {
		return nil, fmt.Errorf("%w: access unit of %d bytes", ErrInvalidArgument, len(au))
	}

	packets, err := p.enc.Encode([][]byte{au})
	if err != nil {
		return nil, fmt.Errorf("aacenc: rtp encode: %w", err)
	}
	for _, pkt := range packets {
		pkt.PayloadType = p.payloadType
		pkt.SequenceNumber = p.sequencer.NextSequenceNumber()
		pkt.Timestamp = frame.Timestamp
		pkt.SSRC = p.ssrc
	}
	return packets, nil
}

// PacketizeAudio packetizes every frame of audio, advancing the timestamp by
// one frame duration per access unit.
func (p *AACPacketizer) PacketizeAudio(audio *EncodedAudio) ([]*RTPPacket, error) {
	var packets []*RTPPacket
	for i, f := range audio.Frames {
		pkts, err := p.Packetize(&EncodedFrame{
			Data:      f,
			Timestamp: audio.Timestamp + uint32(i*SamplesPerFrame),
			Duration:  SamplesPerFrame,
		})
		if err != nil {
			return packets, err
		}
		packets = append(packets, pkts...)
	}
	return packets, nil
}

// PacketizeToBytes converts one access unit to raw RTP packet bytes.
func (p *AACPacketizer) PacketizeToBytes(frame *EncodedFrame) ([][]byte, error) {
	packets, err := p.Packetize(frame)
	if err != nil {
		return nil, err
	}
	result := make([][]byte, len(packets))
	for i, pkt := range packets {
		if result[i], err = pkt.Marshal(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (p *AACPacketizer) SetSSRC(ssrc uint32)     { p.mu.Lock(); p.ssrc = ssrc; p.mu.Unlock() }
func (p *AACPacketizer) SSRC() uint32            { p.mu.Lock(); defer p.mu.Unlock(); return p.ssrc }
func (p *AACPacketizer) PayloadType() uint8      { p.mu.Lock(); defer p.mu.Unlock(); return p.payloadType }
func (p *AACPacketizer) SetPayloadType(pt uint8) { p.mu.Lock(); p.payloadType = pt; p.mu.Unlock() }
func (p *AACPacketizer) MTU() int                { p.mu.Lock(); defer p.mu.Unlock(); return p.mtu }

// SetMTU changes the maximum packet size. Values too small to carry a
// payload byte after the RTP and AU headers are ignored.
func (p *AACPacketizer) SetMTU(mtu int) {
	if mtu < minAACMTU {
		Logger().Debug("ignoring AAC packetizer mtu", zap.Int("mtu", mtu))
		return
	}
	enc, err := newAACRTPEncoder(mtu)
	if err != nil {
		Logger().Debug("ignoring AAC packetizer mtu", zap.Int("mtu", mtu), zap.Error(err))
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.enc = enc
	p.mtu = mtu
}

// AACDepacketizer implements RTPDepacketizer for mpeg4-generic AAC-hbr.
// Packets carrying several access units yield the first from Depacketize;
// the others are returned by Next.
//
// When a fragment of a unit is lost, the unit is dropped and the next unit
// is decoded normally.
type AACDepacketizer struct {
	dec *rtpmpeg4audio.Decoder

	fragmented bool   // dec holds the head of a fragmented unit
	fragmentTS uint32 // Timestamp of that unit
	skipping   bool   // Drop the rest of a unit that lost a fragment
	skipTS     uint32
	nextSeq    uint16
	queue      []*EncodedFrame
	mu         sync.Mutex
}

// NewAACDepacketizer creates a new AAC RTP depacketizer.
func NewAACDepacketizer() (*AACDepacketizer, error) {
	dec, err := newAACRTPDecoder()
	if err != nil {
		return nil, err
	}
	return &AACDepacketizer{dec: dec}, nil
}

// Depacketize processes an RTP packet and returns the first complete access
// unit, or nil while a fragmented unit is incomplete.
func (d *AACDepacketizer) Depacketize(packet *RTPPacket) (*EncodedFrame, error) {
	frames, err := d.DepacketizeAll(packet)
	if err != nil || len(frames) == 0 {
		return nil, err
	}

	d.mu.Lock()
	d.queue = append(d.queue, frames[1:]...)
	d.mu.Unlock()
	return frames[0], nil
}

// Next pops an access unit left over from a multi-unit packet.
func (d *AACDepacketizer) Next() *EncodedFrame {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return nil
	}
	f := d.queue[0]
	d.queue = d.queue[1:]
	return f
}

// DepacketizeAll returns every access unit completed by packet.
func (d *AACDepacketizer) DepacketizeAll(packet *RTPPacket) ([]*EncodedFrame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	seq := packet.SequenceNumber
	if d.fragmented && (packet.Timestamp != d.fragmentTS || seq != d.nextSeq) {
		Logger().Debug("dropping incomplete AAC access unit",
			zap.Uint32("timestamp", d.fragmentTS),
			zap.Uint16("expected_seq", d.nextSeq),
			zap.Uint16("seq", seq))
		if packet.Timestamp == d.fragmentTS {
			d.skipping = true
			d.skipTS = packet.Timestamp
		}
		d.resetLocked()
	}
	d.nextSeq = seq + 1

	if d.skipping {
		if packet.Timestamp == d.skipTS {
			return nil, nil
		}
		d.skipping = false
	}

	aus, err := d.dec.Decode(packet)
	if errors.Is(err, rtpmpeg4audio.ErrMorePacketsNeeded) {
		d.fragmented = true
		d.fragmentTS = packet.Timestamp
		return nil, nil
	}
	d.fragmented = false
	if err != nil {
		d.resetLocked()
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	frames := make([]*EncodedFrame, 0, len(aus))
	for i, au := range aus {
		frames = append(frames, &EncodedFrame{
			Data:      append([]byte(nil), au...),
			Timestamp: packet.Timestamp + uint32(i*SamplesPerFrame),
			Duration:  SamplesPerFrame,
		})
	}
	return frames, nil
}

// DepacketizeBytes processes raw RTP packet bytes.
func (d *AACDepacketizer) DepacketizeBytes(data []byte) (*EncodedFrame, error) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(data); err != nil {
		return nil, err
	}
	return d.Depacketize(&pkt)
}

// Reset drops any partial fragment and queued access units.
func (d *AACDepacketizer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
	d.skipping = false
	d.queue = nil
}

// resetLocked replaces the decoder, discarding buffered fragments.
func (d *AACDepacketizer) resetLocked() {
	if dec, err := newAACRTPDecoder(); err == nil {
		d.dec = dec
	}
	d.fragmented = false
}

func init() {
	RegisterAudioPacketizer(AudioCodecAAC, func(ssrc uint32, pt uint8, mtu int) (RTPPacketizer, error) {
		return NewAACPacketizer(ssrc, pt, mtu)
	})
	RegisterAudioDepacketizer(AudioCodecAAC, func() (RTPDepacketizer, error) {
		return NewAACDepacketizer()
	})
}
