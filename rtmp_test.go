package aacenc

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yutopp/go-rtmp"
	rtmpmsg "github.com/yutopp/go-rtmp/message"
)

func TestFLVAudioTag(t *testing.T) {
	assert.Equal(t, []byte{0xaf, 0x00, 0x12, 0x10}, FLVAudioTag(flvAACSequenceHeader, []byte{0x12, 0x10}))
	assert.Equal(t, []byte{0xaf, 0x01, 1, 2, 3}, FLVAudioTag(flvAACRaw, []byte{1, 2, 3}))
}

func TestSplitRTMPURL(t *testing.T) {
	tests := []struct {
		url, addr, app, key string
	}{
		{"rtmp://localhost/live/abc", "localhost:1935", "live", "abc"},
		{"rtmp://10.0.0.1:1936/live/abc", "10.0.0.1:1936", "live", "abc"},
		{"rtmp://example.com/app/inst/stream", "example.com:1935", "app/inst", "stream"},
	}
	for _, tt := range tests {
		addr, app, key, err := splitRTMPURL(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, []string{tt.addr, tt.app, tt.key}, []string{addr, app, key}, tt.url)
	}

	for _, bad := range []string{"http://host/live/x", "rtmp://host/live", "rtmp://host/live/", "::"} {
		_, _, _, err := splitRTMPURL(bad)
		assert.Error(t, err, bad)
	}
}

type audioMessage struct {
	timestamp uint32
	payload   []byte
}

type captureHandler struct {
	rtmp.DefaultHandler
	published chan string
	audio     chan audioMessage
}

func (h *captureHandler) OnPublish(_ *rtmp.StreamContext, _ uint32, cmd *rtmpmsg.NetStreamPublish) error {
	h.published <- cmd.PublishingName
	return nil
}

func (h *captureHandler) OnAudio(timestamp uint32, payload io.Reader) error {
	data, err := io.ReadAll(payload)
	if err != nil {
		return err
	}
	h.audio <- audioMessage{timestamp: timestamp, payload: data}
	return nil
}

func startRTMPServer(t *testing.T) (string, *captureHandler) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	h := &captureHandler{
		published: make(chan string, 1),
		audio:     make(chan audioMessage, 16),
	}
	srv := rtmp.NewServer(&rtmp.ServerConfig{
		OnConnect: func(conn net.Conn) (io.ReadWriteCloser, *rtmp.ConnConfig) {
			return conn, &rtmp.ConnConfig{
				Handler: h,
				ControlState: rtmp.StreamControlStateConfig{
					DefaultBandwidthWindowSize: 6 * 1024 * 1024,
				},
			}
		},
	})
	go srv.Serve(ln)
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String(), h
}

func TestRTMPPublisherLoopback(t *testing.T) {
	addr, h := startRTMPServer(t)

	pub, err := DialRTMP(RTMPConfig{URL: "rtmp://" + addr + "/live/test", SampleRate: 44100, Channels: 2})
	require.NoError(t, err)
	defer pub.Close()

	select {
	case name := <-h.published:
		assert.Equal(t, "test", name)
	case <-time.After(5 * time.Second):
		t.Fatal("no publish")
	}

	au1, au2 := []byte{1, 2, 3}, []byte{4, 5}
	err = pub.WriteAudio(&EncodedAudio{Frames: [][]byte{adtsFrame(t, au1), au2}, Timestamp: 44100})
	require.NoError(t, err)
	assert.EqualValues(t, 2, pub.Frames())

	want := []audioMessage{
		{0, []byte{0xaf, 0x00, 0x12, 0x10}},
		{0, append([]byte{0xaf, 0x01}, au1...)},
		{23, append([]byte{0xaf, 0x01}, au2...)}, // 1024 samples at 44.1 kHz
	}
	for i, w := range want {
		select {
		case got := <-h.audio:
			assert.Equal(t, w.payload, got.payload, "message %d", i)
			assert.Equal(t, w.timestamp, got.timestamp, "message %d", i)
		case <-time.After(5 * time.Second):
			t.Fatalf("message %d not received", i)
		}
	}
}

func TestDialRTMPInvalid(t *testing.T) {
	_, err := DialRTMP(RTMPConfig{URL: "rtmp://127.0.0.1/live/x", SampleRate: 44000, Channels: 2})
	assert.ErrorIs(t, err, ErrInvalidArgument, "bad rate")
	_, err = DialRTMP(RTMPConfig{URL: "rtsp://127.0.0.1/live/x", SampleRate: 44100, Channels: 2})
	assert.ErrorIs(t, err, ErrInvalidArgument, "bad scheme")
}
