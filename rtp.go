package aacenc

import (
	"fmt"
	"sync"

	"github.com/pion/rtp"
)

// Re-export pion/rtp types for convenience
type (
	// RTPPacket is an alias to pion's rtp.Packet
	RTPPacket = rtp.Packet

	// RTPHeader is an alias to pion's rtp.Header
	RTPHeader = rtp.Header
)

// RTPPacketizer segments encoded frames into RTP packets.
type RTPPacketizer interface {
	// Packetize converts an encoded frame to RTP packets.
	Packetize(frame *EncodedFrame) ([]*RTPPacket, error)

	// PacketizeToBytes converts an encoded frame to raw RTP packet bytes.
	PacketizeToBytes(frame *EncodedFrame) ([][]byte, error)

	SetSSRC(ssrc uint32)
	SSRC() uint32
	PayloadType() uint8
	SetPayloadType(pt uint8)
	MTU() int
	SetMTU(mtu int)
}

// RTPDepacketizer reassembles RTP packets into encoded frames.
type RTPDepacketizer interface {
	// Depacketize processes an RTP packet and returns a complete frame if available.
	// Returns nil if the frame is not yet complete.
	Depacketize(packet *RTPPacket) (*EncodedFrame, error)

	// DepacketizeBytes processes raw RTP packet bytes.
	DepacketizeBytes(data []byte) (*EncodedFrame, error)

	// Reset clears any buffered partial frames.
	Reset()
}

// PacketizerFactory creates an RTP packetizer.
type PacketizerFactory func(ssrc uint32, pt uint8, mtu int) (RTPPacketizer, error)

// DepacketizerFactory creates an RTP depacketizer.
type DepacketizerFactory func() (RTPDepacketizer, error)

type rtpRegistry struct {
	audioPacketizers   map[AudioCodec]PacketizerFactory
	audioDepacketizers map[AudioCodec]DepacketizerFactory
	mu                 sync.RWMutex
}

var globalRTPRegistry = &rtpRegistry{
	audioPacketizers:   make(map[AudioCodec]PacketizerFactory),
	audioDepacketizers: make(map[AudioCodec]DepacketizerFactory),
}

// RegisterAudioPacketizer registers an audio RTP packetizer factory.
func RegisterAudioPacketizer(codec AudioCodec, factory PacketizerFactory) {
	globalRTPRegistry.mu.Lock()
	defer globalRTPRegistry.mu.Unlock()
	globalRTPRegistry.audioPacketizers[codec] = factory
}

// RegisterAudioDepacketizer registers an audio RTP depacketizer factory.
func RegisterAudioDepacketizer(codec AudioCodec, factory DepacketizerFactory) {
	globalRTPRegistry.mu.Lock()
	defer globalRTPRegistry.mu.Unlock()
	globalRTPRegistry.audioDepacketizers[codec] = factory
}

// CreateAudioPacketizer creates an audio RTP packetizer.
func CreateAudioPacketizer(codec AudioCodec, ssrc uint32, pt uint8, mtu int) (RTPPacketizer, error) {
	globalRTPRegistry.mu.RLock()
	factory, ok := globalRTPRegistry.audioPacketizers[codec]
	globalRTPRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("audio packetizer not available: %v", codec)
	}
	return factory(ssrc, pt, mtu)
}

// CreateAudioDepacketizer creates an audio RTP depacketizer.
func CreateAudioDepacketizer(codec AudioCodec) (RTPDepacketizer, error) {
	globalRTPRegistry.mu.RLock()
	factory, ok := globalRTPRegistry.audioDepacketizers[codec]
	globalRTPRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("audio depacketizer not available: %v", codec)
	}
	return factory()
}

// RTPWriter is an interface for writing RTP packets.
type RTPWriter interface {
	// WriteRTP writes an RTP packet.
	WriteRTP(packet *RTPPacket) error

	// WriteRTPBytes writes raw RTP packet bytes.
	WriteRTPBytes(data []byte) error
}

// RTPWriterFunc adapts a function to RTPWriter.
type RTPWriterFunc func(packet *RTPPacket) error

// WriteRTP calls f(packet).
func (f RTPWriterFunc) WriteRTP(packet *RTPPacket) error { return f(packet) }

// WriteRTPBytes unmarshals data and calls f.
func (f RTPWriterFunc) WriteRTPBytes(data []byte) error {
	pkt := &RTPPacket{}
	if err := pkt.Unmarshal(data); err != nil {
		return err
	}
	return f(pkt)
}

// Default MTU for RTP packets (UDP safe)
const DefaultMTU = 1200

// IsRTPTimestampOlder returns true if ts1 is older than or equal to ts2,
// handling 32-bit wraparound.
func IsRTPTimestampOlder(ts1, ts2 uint32) bool {
	if ts1 == ts2 {
		return true
	}
	return ts2-ts1 < 0x80000000
}
