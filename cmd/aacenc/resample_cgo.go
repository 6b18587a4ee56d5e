//go:build cgo

package main

import (
	"io"

	soxr "github.com/zaf/resample"
)

// newResampler returns a writer converting S16 PCM at fromRate to toRate
// before passing it to dst. Close flushes the resampler but not dst.
func newResampler(dst io.Writer, fromRate, toRate, channels int) (io.WriteCloser, error) {
	if fromRate == toRate {
		return nopWriteCloser{dst}, nil
	}
	return soxr.New(dst, float64(fromRate), float64(toRate), channels, soxr.I16, soxr.HighQ)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
