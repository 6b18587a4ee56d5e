package aacenc

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAU(n int) []byte {
	au := make([]byte, n)
	for i := range au {
		au[i] = byte(i*31 + 7)
	}
	return au
}

// depacketizeAll feeds packets in order and returns every completed unit.
func depacketizeAll(t *testing.T, d *AACDepacketizer, packets []*RTPPacket) []*EncodedFrame {
	t.Helper()
	var frames []*EncodedFrame
	for i, pkt := range packets {
		got, err := d.DepacketizeAll(pkt)
		require.NoError(t, err, "packet %d", i)
		frames = append(frames, got...)
	}
	return frames
}

func TestAACPacketizerSinglePacket(t *testing.T) {
	p, err := NewAACPacketizer(0x1234, 97, DefaultMTU)
	require.NoError(t, err)

	au := testAU(371)
	packets, err := p.Packetize(&EncodedFrame{Data: au, Timestamp: 2048})
	require.NoError(t, err)
	require.Len(t, packets, 1)

	pkt := packets[0]
	assert.True(t, pkt.Marker)
	assert.Equal(t, uint32(2048), pkt.Timestamp)
	assert.Equal(t, uint32(0x1234), pkt.SSRC)
	assert.Equal(t, uint8(97), pkt.PayloadType)
	assert.Equal(t, uint8(2), pkt.Version)

	// AU-headers-length 16, AU-size 371, AU-index 0.
	wantPrefix := []byte{0x00, 0x10, byte(371 >> 5), byte((371 << 3) & 0xff)}
	assert.Equal(t, wantPrefix, pkt.Payload[:4])
	assert.Equal(t, au, pkt.Payload[4:])
}

func TestAACPacketizerStripsADTS(t *testing.T) {
	p, err := NewAACPacketizer(1, 97, DefaultMTU)
	require.NoError(t, err)
	au := testAU(50)

	packets, err := p.Packetize(&EncodedFrame{Data: adtsFrame(t, au)})
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, au, packets[0].Payload[4:], "ADTS header was not stripped")
}

func TestAACPacketizerFragmentation(t *testing.T) {
	const mtu = 200
	p, err := NewAACPacketizer(1, 97, mtu)
	require.NoError(t, err)

	au := testAU(1000)
	packets, err := p.Packetize(&EncodedFrame{Data: au, Timestamp: 99})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(packets), (len(au)+mtu-17)/(mtu-16))

	for i, pkt := range packets {
		raw, err := pkt.Marshal()
		require.NoError(t, err)
		assert.LessOrEqual(t, len(raw), mtu, "packet %d", i)
		assert.Equal(t, uint32(99), pkt.Timestamp, "packet %d", i)
		assert.Equal(t, i == len(packets)-1, pkt.Marker, "packet %d marker", i)
		if i > 0 {
			assert.Equal(t, packets[i-1].SequenceNumber+1, pkt.SequenceNumber, "packet %d sequence", i)
		}
	}

	d, err := NewAACDepacketizer()
	require.NoError(t, err)
	for i, pkt := range packets[:len(packets)-1] {
		f, err := d.Depacketize(pkt)
		require.NoError(t, err)
		require.Nil(t, f, "frame completed early at packet %d", i)
	}
	got, err := d.Depacketize(packets[len(packets)-1])
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, au, got.Data)
	assert.Equal(t, uint32(99), got.Timestamp)
}

func TestAACPacketizerRoundTripBytes(t *testing.T) {
	p, err := CreateAudioPacketizer(AudioCodecAAC, 42, 97, 0)
	require.NoError(t, err)
	d, err := CreateAudioDepacketizer(AudioCodecAAC)
	require.NoError(t, err)

	for i, size := range []int{1, 200, 1183, 1184, 4000} {
		au := testAU(size)
		ts := uint32(i * SamplesPerFrame)
		raw, err := p.PacketizeToBytes(&EncodedFrame{Data: au, Timestamp: ts})
		require.NoError(t, err, "size %d", size)

		var got *EncodedFrame
		for _, b := range raw {
			got, err = d.DepacketizeBytes(b)
			require.NoError(t, err)
		}
		require.NotNil(t, got, "size %d", size)
		assert.Equal(t, au, got.Data, "size %d", size)
		assert.Equal(t, ts, got.Timestamp, "size %d", size)
	}
}

func TestAACPacketizeAudio(t *testing.T) {
	p, err := NewAACPacketizer(1, 97, DefaultMTU)
	require.NoError(t, err)
	audio := &EncodedAudio{Frames: [][]byte{testAU(10), testAU(20), testAU(30)}, Timestamp: 4096}

	packets, err := p.PacketizeAudio(audio)
	require.NoError(t, err)
	require.Len(t, packets, 3)
	for i, pkt := range packets {
		assert.Equal(t, uint32(4096+i*SamplesPerFrame), pkt.Timestamp, "packet %d", i)
	}
}

func TestAACPacketizerInvalid(t *testing.T) {
	_, err := NewAACPacketizer(1, 97, 16)
	assert.ErrorIs(t, err, ErrInvalidArgument, "tiny MTU")

	p, err := NewAACPacketizer(1, 97, DefaultMTU)
	require.NoError(t, err)
	_, err = p.Packetize(&EncodedFrame{Data: testAU(5*1024 + 1)})
	assert.ErrorIs(t, err, ErrInvalidArgument, "oversized AU")

	packets, err := p.Packetize(&EncodedFrame{})
	assert.NoError(t, err)
	assert.Nil(t, packets)
}

func TestAACPacketizerSetMTU(t *testing.T) {
	p, err := NewAACPacketizer(1, 97, DefaultMTU)
	require.NoError(t, err)
	au := testAU(100)

	for _, mtu := range []int{16, 10, 0, -1} {
		p.SetMTU(mtu)
		assert.Equal(t, DefaultMTU, p.MTU(), "SetMTU(%d) must be ignored", mtu)

		packets, err := p.Packetize(&EncodedFrame{Data: au})
		require.NoError(t, err)
		assert.Len(t, packets, 1)
	}

	p.SetMTU(40)
	require.Equal(t, 40, p.MTU())
	packets, err := p.Packetize(&EncodedFrame{Data: au, Timestamp: 7})
	require.NoError(t, err)
	require.Greater(t, len(packets), 1)
	for _, pkt := range packets {
		raw, err := pkt.Marshal()
		require.NoError(t, err)
		assert.LessOrEqual(t, len(raw), 40)
	}

	d, err := NewAACDepacketizer()
	require.NoError(t, err)
	frames := depacketizeAll(t, d, packets)
	require.Len(t, frames, 1)
	assert.Equal(t, au, frames[0].Data)
}

func TestAACDepacketizerMultipleAUs(t *testing.T) {
	a, b := testAU(5), testAU(9)
	payload := []byte{0x00, 0x20, 0x00, 5 << 3, 0x00, 9 << 3}
	payload = append(payload, a...)
	payload = append(payload, b...)

	d, err := NewAACDepacketizer()
	require.NoError(t, err)
	first, err := d.Depacketize(&rtp.Packet{Header: rtp.Header{Timestamp: 1000, Marker: true}, Payload: payload})
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, a, first.Data)
	assert.Equal(t, uint32(1000), first.Timestamp)

	second := d.Next()
	require.NotNil(t, second)
	assert.Equal(t, b, second.Data)
	assert.Equal(t, uint32(1000+SamplesPerFrame), second.Timestamp)
	assert.Nil(t, d.Next(), "queue should be empty")
}

func TestAACDepacketizerLostTailFragments(t *testing.T) {
	tests := []struct {
		name     string
		mtu      int
		size     int
		received int // Leading fragments that arrive; -1 for all but the last
	}{
		{"first fragment only", 40, 100, 1},
		{"last fragment lost", 200, 1000, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewAACPacketizer(1, 97, tt.mtu)
			require.NoError(t, err)
			d, err := NewAACDepacketizer()
			require.NoError(t, err)

			big, err := p.Packetize(&EncodedFrame{Data: testAU(tt.size), Timestamp: 0})
			require.NoError(t, err)
			require.Greater(t, len(big), 2)
			small := testAU(20)
			next, err := p.Packetize(&EncodedFrame{Data: small, Timestamp: SamplesPerFrame})
			require.NoError(t, err)
			require.Len(t, next, 1)
			require.True(t, next[0].Marker)

			n := tt.received
			if n < 0 {
				n = len(big) - 1
			}
			assert.Empty(t, depacketizeAll(t, d, big[:n]))

			f, err := d.Depacketize(next[0])
			require.NoError(t, err)
			require.NotNil(t, f, "complete unit after a lost fragment")
			assert.Equal(t, small, f.Data)
			assert.Equal(t, uint32(SamplesPerFrame), f.Timestamp)
		})
	}
}

func TestAACDepacketizerLostMiddleFragment(t *testing.T) {
	p, err := NewAACPacketizer(1, 97, 200)
	require.NoError(t, err)
	d, err := NewAACDepacketizer()
	require.NoError(t, err)

	big, err := p.Packetize(&EncodedFrame{Data: testAU(1000), Timestamp: 0})
	require.NoError(t, err)
	require.Greater(t, len(big), 2)
	small := testAU(20)
	next, err := p.Packetize(&EncodedFrame{Data: small, Timestamp: SamplesPerFrame})
	require.NoError(t, err)

	received := append([]*RTPPacket{big[0]}, big[2:]...)
	assert.Empty(t, depacketizeAll(t, d, received), "a unit missing a fragment must not be emitted")

	frames := depacketizeAll(t, d, next)
	require.Len(t, frames, 1)
	assert.Equal(t, small, frames[0].Data)
}

func TestAACDepacketizerErrors(t *testing.T) {
	d, err := NewAACDepacketizer()
	require.NoError(t, err)

	_, err = d.Depacketize(&rtp.Packet{Header: rtp.Header{Marker: true}, Payload: []byte{0x00}})
	assert.ErrorIs(t, err, ErrInvalidArgument, "short payload")

	// The AU header announces more bytes than the packet carries.
	truncated := append([]byte{0x00, 0x10, byte(100 >> 5), byte((100 << 3) & 0xff)}, testAU(10)...)
	_, err = d.Depacketize(&rtp.Packet{Header: rtp.Header{Marker: true, SequenceNumber: 1}, Payload: truncated})
	assert.ErrorIs(t, err, ErrInvalidArgument, "truncated AU")

	// After Reset a whole AU decodes again.
	d.Reset()
	whole := []byte{0x00, 0x10, 0x00, 3 << 3, 1, 2, 3}
	f, err := d.Depacketize(&rtp.Packet{Header: rtp.Header{Marker: true, SequenceNumber: 2}, Payload: whole})
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, []byte{1, 2, 3}, f.Data)
}

func TestIsRTPTimestampOlder(t *testing.T) {
	assert.True(t, IsRTPTimestampOlder(100, 200))
	assert.False(t, IsRTPTimestampOlder(200, 100))
	assert.True(t, IsRTPTimestampOlder(0xfffffff0, 0x10), "wraparound")
}
