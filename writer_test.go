package aacenc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeWriter(t *testing.T, dst *bytes.Buffer, channels int, adts bool) (*Writer, *fakeCodec) {
	t.Helper()
	e, f := newFramingEncoder(t, channels, adts)
	return newWriter(dst, e), f
}

func TestWriterADTSStream(t *testing.T) {
	var out bytes.Buffer
	w, _ := newFakeWriter(t, &out, 2, true)

	pcm := createTestPCM(44100, 2, SamplesPerFrame*3+100)
	for off := 0; off < len(pcm); off += 777 {
		chunk := pcm[off:min(off+777, len(pcm))]
		n, err := w.Write(chunk)
		require.NoError(t, err)
		require.Equal(t, len(chunk), n)
	}
	assert.EqualValues(t, 3, w.Frames(), "frames before Close")

	require.NoError(t, w.Close())
	assert.NoError(t, w.Close(), "second Close")

	frames, err := SplitADTS(out.Bytes())
	require.NoError(t, err, "output is not an ADTS stream")
	assert.Len(t, frames, 4)
	assert.EqualValues(t, out.Len(), w.BytesWritten())

	_, err = w.Write(pcm)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWriterRaw(t *testing.T) {
	var out bytes.Buffer
	w, _ := newFakeWriter(t, &out, 1, false)

	_, err := w.Write(createTestPCM(44100, 1, SamplesPerFrame))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	// One 4-byte access unit, no header, nothing to flush.
	assert.Equal(t, 4, out.Len())
	assert.EqualValues(t, 1, w.Frames())
}

type failingWriter struct{ n int }

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.n == 0 {
		return 0, errors.New("disk full")
	}
	f.n--
	return len(p), nil
}

func TestWriterSinkError(t *testing.T) {
	e, _ := newFramingEncoder(t, 2, true)
	w := newWriter(&failingWriter{}, e)

	_, err := w.Write(createTestPCM(44100, 2, SamplesPerFrame))
	require.Error(t, err, "write error not reported")
	// The error sticks.
	_, err = w.Write([]byte{0, 0, 0, 0})
	assert.Error(t, err)
	w.Close()
}

func TestNewWriterValidates(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, WriterConfig{Channels: 3})
	assert.Error(t, err, "3 channels")
}
