package main

import (
	"fmt"
	"os"

	"github.com/youpy/go-wav"
)

// wavInput reads the PCM payload of a 16-bit WAV file.
type wavInput struct {
	file   *os.File
	reader *wav.Reader

	SampleRate int
	Channels   int
}

func openWAV(fileName string) (*wavInput, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	reader := wav.NewReader(file)
	format, err := reader.Format()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read WAV format: %w", err)
	}

	if format.AudioFormat != wav.AudioFormatPCM {
		file.Close()
		return nil, fmt.Errorf("unsupported WAV format: %d (only PCM supported)", format.AudioFormat)
	}
	if format.BitsPerSample != 16 {
		file.Close()
		return nil, fmt.Errorf("unsupported bits per sample: %d (only 16-bit supported)", format.BitsPerSample)
	}
	if format.NumChannels < 1 || format.NumChannels > 2 {
		file.Close()
		return nil, fmt.Errorf("unsupported channel count: %d", format.NumChannels)
	}

	return &wavInput{
		file:       file,
		reader:     reader,
		SampleRate: int(format.SampleRate),
		Channels:   int(format.NumChannels),
	}, nil
}

// Read reads interleaved S16LE samples.
func (w *wavInput) Read(p []byte) (int, error) {
	return w.reader.Read(p)
}

func (w *wavInput) Close() error {
	return w.file.Close()
}
