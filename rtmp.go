package aacenc

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yutopp/go-rtmp"
	rtmpmsg "github.com/yutopp/go-rtmp/message"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FLV AAC audio tag: SoundFormat 10 (AAC), 44 kHz, 16-bit, stereo. The rate,
// size and type bits are fixed for AAC; the real values come from the
// AudioSpecificConfig.
const (
	flvAACSoundHeader    = 0xAF
	flvAACSequenceHeader = 0x00
	flvAACRaw            = 0x01

	rtmpAudioChunkStreamID = 4
	rtmpDefaultPort        = "1935"
)

// FLVAudioTag returns an FLV AAC audio tag body (the RTMP audio message
// payload) of the given packet type.
func FLVAudioTag(packetType byte, data []byte) []byte {
	tag := make([]byte, 2+len(data))
	tag[0] = flvAACSoundHeader
	tag[1] = packetType
	copy(tag[2:], data)
	return tag
}

// RTMPConfig configures an RTMP publisher.
type RTMPConfig struct {
	URL        string // rtmp://host[:port]/app/stream
	SampleRate int    // Sample rate of the published stream
	Channels   int    // Channels of the published stream
	ChunkSize  uint32 // Outgoing chunk size (default: 4096)
}

// RTMPPublisher publishes encoded AAC to an RTMP server. It implements
// FrameSink.
type RTMPPublisher struct {
	client *rtmp.ClientConn
	stream *rtmp.Stream

	asc        []byte
	sampleRate int
	headerSent bool
	baseTS     uint32
	haveBase   bool
	frames     uint64
	mu         sync.Mutex
}

// rtmpConnLogger returns the logrus logger go-rtmp writes to. It is silent
// unless the package logger has debug enabled.
func rtmpConnLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	if Logger().Core().Enabled(zapcore.DebugLevel) {
		l.SetOutput(zap.NewStdLog(Logger()).Writer())
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// splitRTMPURL returns the dial address, application and stream key.
func splitRTMPURL(raw string) (addr, app, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", "", err
	}
	if u.Scheme != "rtmp" {
		return "", "", "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidArgument, u.Scheme)
	}
	path := strings.Trim(u.Path, "/")
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "", "", "", fmt.Errorf("%w: url %q needs /app/stream", ErrInvalidArgument, raw)
	}
	app, key = path[:i], path[i+1:]

	addr = u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), rtmpDefaultPort)
	}
	return addr, app, key, nil
}

// DialRTMP connects to the server in cfg.URL, creates a stream and starts
// publishing it live.
func DialRTMP(cfg RTMPConfig) (*RTMPPublisher, error) {
	asc, err := AudioSpecificConfig(ObjectTypeAACLC, cfg.SampleRate, cfg.Channels)
	if err != nil {
		return nil, err
	}
	addr, app, key, err := splitRTMPURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 4096
	}

	client, err := rtmp.Dial("rtmp", addr, &rtmp.ConnConfig{Logger: rtmpConnLogger()})
	if err != nil {
		return nil, fmt.Errorf("rtmp dial %s: %w", addr, err)
	}

	tcURL := "rtmp://" + addr + "/" + app
	if err := client.Connect(&rtmpmsg.NetConnectionConnect{
		Command: rtmpmsg.NetConnectionConnectCommand{
			App:      app,
			Type:     "nonprivate",
			FlashVer: "FMLE/3.0 (compatible; aacenc)",
			TCURL:    tcURL,
		},
	}); err != nil {
		client.Close()
		return nil, fmt.Errorf("rtmp connect %s: %w", tcURL, err)
	}

	stream, err := client.CreateStream(&rtmpmsg.NetConnectionCreateStream{}, cfg.ChunkSize)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("rtmp create stream: %w", err)
	}
	if err := stream.Publish(&rtmpmsg.NetStreamPublish{
		PublishingName: key,
		PublishingType: "live",
	}); err != nil {
		stream.Close()
		client.Close()
		return nil, fmt.Errorf("rtmp publish %s: %w", key, err)
	}

	Logger().Info("rtmp publishing",
		zap.String("addr", addr),
		zap.String("app", app),
		zap.String("stream", key))

	return &RTMPPublisher{
		client:     client,
		stream:     stream,
		asc:        asc,
		sampleRate: cfg.SampleRate,
	}, nil
}

// WriteAudio implements FrameSink. The AudioSpecificConfig is sent before the
// first frame; ADTS headers are stripped.
func (p *RTMPPublisher) WriteAudio(audio *EncodedAudio) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.haveBase {
		p.baseTS = audio.Timestamp
		p.haveBase = true
	}

	for i, f := range audio.Frames {
		ts := audio.Timestamp + uint32(i*SamplesPerFrame) - p.baseTS
		ms := uint32(uint64(ts) * 1000 / uint64(p.sampleRate))

		if !p.headerSent {
			if err := p.write(ms, FLVAudioTag(flvAACSequenceHeader, p.asc)); err != nil {
				return err
			}
			p.headerSent = true
		}

		raw := f
		if IsADTS(f) {
			var err error
			if raw, err = StripADTS(f); err != nil {
				return err
			}
		}
		if err := p.write(ms, FLVAudioTag(flvAACRaw, raw)); err != nil {
			return err
		}
		p.frames++
	}
	return nil
}

func (p *RTMPPublisher) write(ms uint32, payload []byte) error {
	err := p.stream.Write(rtmpAudioChunkStreamID, ms, &rtmpmsg.AudioMessage{
		Payload: bytes.NewReader(payload),
	})
	if err != nil {
		return fmt.Errorf("rtmp write audio: %w", err)
	}
	return nil
}

// Frames returns the number of access units sent.
func (p *RTMPPublisher) Frames() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// Close closes the stream and the connection.
func (p *RTMPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	serr := p.stream.Close()
	cerr := p.client.Close()
	if serr != nil {
		return serr
	}
	return cerr
}

var _ FrameSink = (*RTMPPublisher)(nil)
