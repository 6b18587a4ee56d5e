package aacenc

import (
	"encoding/hex"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// AACFmtpLine returns the SDP fmtp parameters of an AAC-hbr stream, config=
// carrying the hex AudioSpecificConfig.
func AACFmtpLine(sampleRate, channels int) (string, error) {
	asc, err := AudioSpecificConfig(ObjectTypeAACLC, sampleRate, channels)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("streamtype=5;profile-level-id=1;mode=AAC-hbr;sizelength=13;indexlength=3;indexdeltalength=3;config=%s",
		hex.EncodeToString(asc)), nil
}

// AACCodecCapability describes an AAC-LC stream for a pion MediaEngine.
func AACCodecCapability(sampleRate, channels int) (webrtc.RTPCodecCapability, error) {
	fmtp, err := AACFmtpLine(sampleRate, channels)
	if err != nil {
		return webrtc.RTPCodecCapability{}, err
	}
	return webrtc.RTPCodecCapability{
		MimeType:    AudioCodecAAC.MimeType(),
		ClockRate:   AudioCodecAAC.ClockRate(sampleRate),
		Channels:    uint16(channels),
		SDPFmtpLine: fmtp,
	}, nil
}

// RegisterAACCodec adds the AAC capability to m under payload type pt.
func RegisterAACCodec(m *webrtc.MediaEngine, sampleRate, channels int, pt uint8) error {
	capability, err := AACCodecCapability(sampleRate, channels)
	if err != nil {
		return err
	}
	return m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: capability,
		PayloadType:        webrtc.PayloadType(pt),
	}, webrtc.RTPCodecTypeAudio)
}

// NewAACTrack creates a local track that forwards already packetized AAC.
func NewAACTrack(id, streamID string, sampleRate, channels int) (*webrtc.TrackLocalStaticRTP, error) {
	capability, err := AACCodecCapability(sampleRate, channels)
	if err != nil {
		return nil, err
	}
	return webrtc.NewTrackLocalStaticRTP(capability, id, streamID)
}

// TrackWriter adapts a TrackLocalStaticRTP to RTPWriter so a pipeline can
// feed a PeerConnection directly.
type TrackWriter struct {
	Track *webrtc.TrackLocalStaticRTP
}

// WriteRTP implements RTPWriter.
func (w TrackWriter) WriteRTP(packet *RTPPacket) error {
	return w.Track.WriteRTP(packet)
}

// WriteRTPBytes implements RTPWriter.
func (w TrackWriter) WriteRTPBytes(data []byte) error {
	_, err := w.Track.Write(data)
	return err
}

var _ RTPWriter = TrackWriter{}
