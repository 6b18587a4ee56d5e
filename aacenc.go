package aacenc

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"go.uber.org/zap"
)

// session is the state shared with the native library. It stays pinned from
// Init until Uninit because the library keeps userData.memData.
type session struct {
	params   encParam
	handle   uintptr
	memOp    memOperator
	userData initUserData
	pinner   runtime.Pinner
}

// Encoder owns one native AAC encoder session.
//
// Calls are serialised; the codec keeps input/output ordering state between
// SetInputData and GetOutputData.
type Encoder struct {
	api codecAPI
	mem nativeMemory
	s   *session

	scratch []byte
	closed  bool
	mu      sync.Mutex
}

// NewEncoder opens a session on libvo-aacenc with the given parameters. When
// adts is true every output frame carries an ADTS header, otherwise frames
// are raw AAC access units.
//
// Parameters are passed to the library unchanged; combinations it rejects are
// reported as *ResultError (typically ErrInvalidArgument).
func NewEncoder(channels, sampleRate, bitRate int, adts bool) (*Encoder, error) {
	b, err := loadBackend()
	if err != nil {
		return nil, err
	}
	return newEncoder(b.api, b.mem, channels, sampleRate, bitRate, adts)
}

func newEncoder(api codecAPI, mem nativeMemory, channels, sampleRate, bitRate int, adts bool) (*Encoder, error) {
	s := &session{
		params: encParam{
			sampleRate: int32(sampleRate),
			bitRate:    int32(bitRate),
			nChannels:  int16(channels),
		},
		memOp: api.MemOperator(),
	}
	if adts {
		s.params.adtsUsed = 1
	}
	s.pinner.Pin(s)

	var userData *initUserData
	if s.memOp.installed() {
		s.userData = initUserData{
			memFlag: memFlagUserOperator,
			memData: unsafe.Pointer(&s.memOp),
		}
		userData = &s.userData
	}

	if err := checkResult("Init", api.Init(&s.handle, codingAAC, userData)); err != nil {
		s.pinner.Unpin()
		return nil, err
	}

	if err := checkResult("SetParam", api.SetParam(s.handle, pidAACEncParam, unsafe.Pointer(&s.params))); err != nil {
		api.Uninit(s.handle)
		s.pinner.Unpin()
		Logger().Debug("encoder parameters rejected",
			zap.Int("channels", channels),
			zap.Int("sample_rate", sampleRate),
			zap.Int("bit_rate", bitRate),
			zap.Error(err))
		return nil, err
	}

	e := &Encoder{
		api:     api,
		mem:     mem,
		s:       s,
		scratch: make([]byte, outputScratchSize),
	}
	runtime.SetFinalizer(e, (*Encoder).finalize)

	Logger().Debug("encoder opened",
		zap.Int("channels", channels),
		zap.Int("sample_rate", sampleRate),
		zap.Int("bit_rate", bitRate),
		zap.Bool("adts", adts))
	return e, nil
}

// Channels returns the channel count the encoder was created with.
func (e *Encoder) Channels() int { return int(e.s.params.nChannels) }

// SampleRate returns the configured input sample rate.
func (e *Encoder) SampleRate() int { return int(e.s.params.sampleRate) }

// BitRate returns the configured target bit rate in bits per second.
func (e *Encoder) BitRate() int { return int(e.s.params.bitRate) }

// ADTS reports whether output frames carry ADTS headers.
func (e *Encoder) ADTS() bool { return e.s.params.adtsUsed != 0 }

// Encode feeds buf[offset:offset+length] to the codec and fetches at most one
// encoded frame.
//
// It returns the frame bytes (possibly empty) and the number of input bytes
// the codec consumed, which may be less than length. On error no output is
// returned, but the consumed count is still reported: with
// ErrInputBufferTooSmall the codec has buffered the input internally and
// expects more.
func (e *Encoder) Encode(buf []byte, offset, length int) ([]byte, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, 0, ErrClosed
	}
	if offset < 0 || length < 0 || offset > len(buf) || length > len(buf)-offset {
		return nil, 0, fmt.Errorf("%w: offset %d length %d in buffer of %d bytes",
			ErrRegionOutOfRange, offset, length, len(buf))
	}

	in, err := e.mem.Alloc(length)
	if err != nil {
		return nil, 0, err
	}
	if length > 0 {
		copy(unsafe.Slice((*byte)(in), length), buf[offset:offset+length])
	}

	input := &codecBuffer{buffer: in, length: uint(length)}
	output := &codecBuffer{buffer: unsafe.Pointer(&e.scratch[0]), length: uint(len(e.scratch))}
	info := &outputInfo{}

	var pinner runtime.Pinner
	pinner.Pin(input)
	pinner.Pin(output)
	pinner.Pin(info)
	pinner.Pin(&e.scratch[0])
	defer pinner.Unpin()

	if err := checkResult("SetInputData", e.api.SetInputData(e.s.handle, input)); err != nil {
		e.mem.Free(in)
		return nil, 0, err
	}
	code := e.api.GetOutputData(e.s.handle, output, info)
	e.mem.Free(in)

	used := int(info.inputUsed)
	if err := checkResult("GetOutputData", code); err != nil {
		return nil, used, err
	}
	if int(output.length) > len(e.scratch) {
		return nil, used, &ResultError{Op: "GetOutputData", Code: resultOutputBufferSmall, Err: ErrOutputBufferTooSmall}
	}

	out := make([]byte, output.length)
	copy(out, e.scratch[:output.length])
	return out, used, nil
}

// Close releases the native session. It is safe to call more than once.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	runtime.SetFinalizer(e, nil)
	return e.release()
}

func (e *Encoder) finalize() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.release()
}

// release tears the session down exactly once. Callers hold e.mu.
func (e *Encoder) release() error {
	if e.closed {
		return nil
	}
	e.closed = true

	err := checkResult("Uninit", e.api.Uninit(e.s.handle))
	e.s.handle = 0
	e.s.pinner.Unpin()

	Logger().Debug("encoder closed", zap.Error(err))
	return err
}
