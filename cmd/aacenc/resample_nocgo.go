//go:build !cgo

package main

import (
	"fmt"
	"io"
)

// newResampler passes PCM through unchanged; resampling needs libsoxr via cgo.
func newResampler(dst io.Writer, fromRate, toRate, channels int) (io.WriteCloser, error) {
	if fromRate != toRate {
		return nil, fmt.Errorf("resampling %d Hz to %d Hz requires a cgo build", fromRate, toRate)
	}
	return nopWriteCloser{dst}, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
