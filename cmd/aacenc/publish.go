package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thesyncim/aacenc"
)

var publishCmd = &cobra.Command{
	Use:   "publish [input.wav]",
	Short: "Publish AAC audio to an RTMP server",
	Long: `Encode a WAV file, or a generated tone when no file is given, and
publish it live to an RTMP server. Audio is paced in real time.

Examples:
  # Publish a file
  aacenc publish input.wav --url rtmp://localhost/live/stream

  # Publish a 10 second 1 kHz sine
  aacenc publish --url rtmp://localhost/live/stream --tone sine --frequency 1000 --duration 10s`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().String("url", "", "RTMP URL: rtmp://host[:port]/app/stream")
	publishCmd.Flags().Int("bitrate", 128000, "Target bitrate in bps")
	publishCmd.Flags().Int("rate", 44100, "Sample rate of the generated tone")
	publishCmd.Flags().Int("channels", 2, "Channels of the generated tone")
	publishCmd.Flags().String("tone", "sine", "Tone pattern: silence, sine, square, noise, sweep")
	publishCmd.Flags().Float64("frequency", 440, "Tone frequency in Hz")
	publishCmd.Flags().Duration("duration", 0, "Tone duration (default: until interrupted)")
	publishCmd.MarkFlagRequired("url")
}

func runPublish(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")
	bitrate, _ := cmd.Flags().GetInt("bitrate")

	var (
		source aacenc.AudioSource
		err    error
	)
	if len(args) == 1 {
		source, err = wavSource(args[0])
	} else {
		source, err = toneSource(cmd)
	}
	if err != nil {
		return err
	}

	enc, err := aacenc.NewAACEncoder(aacenc.AudioEncoderConfig{
		SampleRate: source.SampleRate(),
		Channels:   source.Channels(),
		BitrateBps: bitrate,
	})
	if err != nil {
		source.Close()
		return err
	}

	pub, err := aacenc.DialRTMP(aacenc.RTMPConfig{
		URL:        url,
		SampleRate: source.SampleRate(),
		Channels:   source.Channels(),
	})
	if err != nil {
		source.Close()
		enc.Close()
		return err
	}
	defer pub.Close()

	pipeline, err := aacenc.NewAudioEncodePipeline(aacenc.AudioPipelineConfig{
		Source:  source,
		Encoder: enc,
		Sink:    pub,
		OnError: func(err error) {
			logger.Warn("publish error", zap.Error(err))
		},
	})
	if err != nil {
		source.Close()
		enc.Close()
		return err
	}
	defer pipeline.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := pipeline.Start(ctx); err != nil {
		return err
	}
	logger.Info("publishing",
		zap.String("url", url),
		zap.Int("rate", source.SampleRate()),
		zap.Int("channels", source.Channels()),
		zap.Int("bitrate", bitrate))

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-pipeline.Done():
			logPublishStats(pipeline, pub)
			return nil
		case <-ctx.Done():
			pipeline.Stop()
			logPublishStats(pipeline, pub)
			return nil
		case <-ticker.C:
			logPublishStats(pipeline, pub)
		}
	}
}

func logPublishStats(p *aacenc.AudioEncodePipeline, pub *aacenc.RTMPPublisher) {
	stats := p.Stats()
	logger.Info("publish stats",
		zap.Uint64("samples", stats.SamplesCaptured),
		zap.Uint64("frames", pub.Frames()),
		zap.Uint64("errors", stats.Errors))
}

// wavSource loads a WAV file, resampled to 48 kHz when AAC has no index for
// its rate, and plays it back in real time.
func wavSource(fileName string) (aacenc.AudioSource, error) {
	in, err := openWAV(fileName)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	rate := in.SampleRate
	if !aacenc.IsSupportedSampleRate(rate) {
		rate = 48000
	}

	var pcm bytes.Buffer
	dst, err := newResampler(&pcm, in.SampleRate, rate, in.Channels)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(dst, in); err != nil {
		return nil, fmt.Errorf("read %s: %w", fileName, err)
	}
	if err := dst.Close(); err != nil {
		return nil, err
	}

	return aacenc.NewReaderSource(aacenc.ReaderConfig{
		Reader:     bytes.NewReader(pcm.Bytes()),
		SampleRate: rate,
		Channels:   in.Channels,
		Realtime:   true,
	})
}

func toneSource(cmd *cobra.Command) (aacenc.AudioSource, error) {
	rate, _ := cmd.Flags().GetInt("rate")
	channels, _ := cmd.Flags().GetInt("channels")
	name, _ := cmd.Flags().GetString("tone")
	frequency, _ := cmd.Flags().GetFloat64("frequency")
	duration, _ := cmd.Flags().GetDuration("duration")

	pattern, err := aacenc.ParseTonePattern(name)
	if err != nil {
		return nil, err
	}
	return aacenc.NewToneSource(aacenc.ToneConfig{
		SampleRate: rate,
		Channels:   channels,
		Pattern:    pattern,
		Frequency:  frequency,
		Realtime:   true,
		Duration:   duration,
	}), nil
}
