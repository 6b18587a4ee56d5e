package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thesyncim/aacenc"
)

var encodeCmd = &cobra.Command{
	Use:   "encode <input.wav>",
	Short: "Encode a WAV file to AAC",
	Long: `Encode a 16-bit PCM WAV file (mono or stereo) to AAC-LC.

The output is an ADTS stream playable by most tools, or with --raw bare
access units written back to back.

Examples:
  # Encode to input.aac at 128 kbps
  aacenc encode input.wav

  # Resample to 48 kHz and encode at 96 kbps
  aacenc encode input.wav --rate 48000 --bitrate 96000 -o out.aac`,
	Args: cobra.ExactArgs(1),
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().StringP("out", "o", "", "Output file (default: input with .aac extension)")
	encodeCmd.Flags().Int("bitrate", 128000, "Target bitrate in bps")
	encodeCmd.Flags().Int("rate", 0, "Output sample rate in Hz (default: input rate)")
	encodeCmd.Flags().Bool("raw", false, "Write raw access units instead of ADTS")
}

func runEncode(cmd *cobra.Command, args []string) error {
	inFileName := args[0]
	outFileName, _ := cmd.Flags().GetString("out")
	bitrate, _ := cmd.Flags().GetInt("bitrate")
	rate, _ := cmd.Flags().GetInt("rate")
	raw, _ := cmd.Flags().GetBool("raw")

	if outFileName == "" {
		outFileName = strings.TrimSuffix(inFileName, filepath.Ext(inFileName)) + ".aac"
	}

	in, err := openWAV(inFileName)
	if err != nil {
		return err
	}
	defer in.Close()

	if rate == 0 {
		rate = in.SampleRate
	}
	if !aacenc.IsSupportedSampleRate(rate) {
		return fmt.Errorf("sample rate %d Hz is not supported by AAC; pick one with --rate", rate)
	}

	logger.Info("encoding",
		zap.String("input", inFileName),
		zap.Int("input_rate", in.SampleRate),
		zap.Int("channels", in.Channels),
		zap.Int("rate", rate),
		zap.Int("bitrate", bitrate),
		zap.Bool("raw", raw),
		zap.String("output", outFileName))

	start := time.Now()
	stats, err := encodeFile(in, outFileName, aacenc.WriterConfig{
		SampleRate: rate,
		Channels:   in.Channels,
		BitrateBps: bitrate,
		Raw:        raw,
	}, in.SampleRate)
	if err != nil {
		return err
	}

	logger.Info("encoding complete",
		zap.Uint64("frames", stats.frames),
		zap.Uint64("bytes", stats.bytes),
		zap.Duration("audio", time.Duration(stats.frames)*aacenc.SamplesPerFrame*time.Second/time.Duration(rate)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

type encodeStats struct {
	frames uint64
	bytes  uint64
}

// encodeFile encodes src, PCM at inRate, into outFileName.
func encodeFile(src io.Reader, outFileName string, cfg aacenc.WriterConfig, inRate int) (encodeStats, error) {
	f, err := os.Create(outFileName)
	if err != nil {
		return encodeStats{}, fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	w, err := aacenc.NewWriter(bw, cfg)
	if err != nil {
		return encodeStats{}, err
	}

	dst, err := newResampler(w, inRate, cfg.SampleRate, cfg.Channels)
	if err != nil {
		w.Close()
		return encodeStats{}, err
	}

	_, copyErr := io.Copy(dst, src)
	err = errors.Join(copyErr, dst.Close(), w.Close(), bw.Flush(), f.Close())
	if err != nil {
		return encodeStats{}, fmt.Errorf("encode %s: %w", outFileName, err)
	}
	return encodeStats{frames: w.Frames(), bytes: w.BytesWritten()}, nil
}
