package aacenc

import (
	"sync"
	"unsafe"
)

type fakeMode int

const (
	// fakeEcho consumes all input and returns pattern from every
	// GetOutputData call.
	fakeEcho fakeMode = iota
	// fakeFraming behaves like libvo-aacenc: input is buffered until a full
	// frame is available, then one ADTS frame is produced.
	fakeFraming
)

// fakeCodec is an in-memory codecAPI recording every call.
type fakeCodec struct {
	mu sync.Mutex

	mode       fakeMode
	pattern    []byte
	frameBytes int
	noMemOp    bool

	initCode     ResultCode
	setParamCode ResultCode
	inputCode    ResultCode
	outputCode   ResultCode
	outputLen    int // Overrides the reported output length when > 0

	inits, uninits, setParams, inputs, outputs int
	live                                       int
	nextHandle                                 uintptr
	params                                     encParam
	userData                                   *initUserData
	received                                   []byte
	pending                                    []byte
	buffered                                   []byte
	framesOut                                  int
	busy, overlapped                           bool
}

func newFakeCodec() *fakeCodec {
	return &fakeCodec{pattern: []byte{0xde, 0xad, 0xbe, 0xef}, frameBytes: 4096}
}

func (f *fakeCodec) Init(handle *uintptr, coding int32, userData *initUserData) ResultCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	f.userData = userData
	if f.initCode != resultNone {
		return f.initCode
	}
	f.nextHandle++
	*handle = f.nextHandle
	f.live++
	return resultNone
}

func (f *fakeCodec) SetParam(handle uintptr, id int32, param unsafe.Pointer) ResultCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setParams++
	if id == pidAACEncParam {
		f.params = *(*encParam)(param)
		f.frameBytes = SamplesPerFrame * int(f.params.nChannels) * 2
	}
	return f.setParamCode
}

func (f *fakeCodec) SetInputData(handle uintptr, input *codecBuffer) ResultCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs++
	if f.busy {
		f.overlapped = true
	}
	f.busy = true
	if f.inputCode != resultNone {
		f.busy = false
		return f.inputCode
	}
	f.pending = append(f.pending[:0], unsafe.Slice((*byte)(input.buffer), input.length)...)
	return resultNone
}

func (f *fakeCodec) GetOutputData(handle uintptr, output *codecBuffer, info *outputInfo) ResultCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs++
	f.busy = false

	if f.mode == fakeFraming {
		return f.frame(output, info)
	}

	info.inputUsed = uint(len(f.pending))
	if f.outputCode != resultNone {
		return f.outputCode
	}
	f.received = append(f.received, f.pending...)
	n := copy(unsafe.Slice((*byte)(output.buffer), output.length), f.pattern)
	output.length = uint(n)
	if f.outputLen > 0 {
		output.length = uint(f.outputLen)
	}
	return resultNone
}

func (f *fakeCodec) frame(output *codecBuffer, info *outputInfo) ResultCode {
	take := min(f.frameBytes-len(f.buffered), len(f.pending))
	f.buffered = append(f.buffered, f.pending[:take]...)
	f.received = append(f.received, f.pending[:take]...)
	info.inputUsed = uint(take)
	if len(f.buffered) < f.frameBytes {
		return resultInputBufferSmall
	}

	// The payload carries the frame number and the first PCM byte so tests
	// can check ordering.
	payload := []byte{byte(f.framesOut), f.buffered[0], 0x5a, 0xa5}
	out := payload
	if f.params.adtsUsed != 0 {
		out, _ = MarshalADTS(ObjectTypeAACLC, int(f.params.sampleRate), int(f.params.nChannels), payload)
	}

	output.length = uint(copy(unsafe.Slice((*byte)(output.buffer), output.length), out))
	f.buffered = f.buffered[:0]
	f.framesOut++
	return resultNone
}

func (f *fakeCodec) Uninit(handle uintptr) ResultCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uninits++
	f.live--
	return resultNone
}

func (f *fakeCodec) MemOperator() memOperator {
	if f.noMemOp {
		return memOperator{}
	}
	return memOperator{alloc: 1, free: 2, set: 3, copy: 4, check: 5}
}

func (f *fakeCodec) snapshot() fakeCodec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeCodec{
		inits: f.inits, uninits: f.uninits, setParams: f.setParams,
		inputs: f.inputs, outputs: f.outputs, live: f.live,
		overlapped: f.overlapped, framesOut: f.framesOut,
		received: append([]byte(nil), f.received...),
	}
}

// fakeMemory is a nativeMemory that counts allocations.
type fakeMemory struct {
	mu     sync.Mutex
	live   map[unsafe.Pointer][]byte
	allocs int
	frees  int
	fail   bool
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{live: make(map[unsafe.Pointer][]byte)}
}

func (m *fakeMemory) Alloc(size int) (unsafe.Pointer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, ErrOutOfMemory
	}
	buf := make([]byte, max(size, 1))
	p := unsafe.Pointer(&buf[0])
	m.live[p] = buf
	m.allocs++
	return p, nil
}

func (m *fakeMemory) Free(p unsafe.Pointer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live[p]; ok {
		delete(m.live, p)
		m.frees++
	}
}

func (m *fakeMemory) outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// newFakeEncoder opens an Encoder on a fake codec.
func newFakeEncoder(f *fakeCodec, m *fakeMemory, channels, sampleRate, bitRate int, adts bool) (*Encoder, error) {
	return newEncoder(f, m, channels, sampleRate, bitRate, adts)
}
