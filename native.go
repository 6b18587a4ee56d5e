package aacenc

import "unsafe"

// Constants from voAudio.h, voAAC.h and voIndex.h.
const (
	codingAAC           int32 = 8          // VO_AUDIO_CodingAAC
	pidAACEncParam      int32 = 0x42211040 // VO_PID_AAC_ENCPARAM
	memFlagUserOperator       = 0          // VO_IMF_USERMEMOPERATOR

	// outputScratchSize is the capacity offered to GetOutputData per call.
	outputScratchSize = 20480
)

// The structs below mirror the C layouts of the vo-aacenc headers on LP64
// targets, where VO_U32 and VO_S32 are C longs (Go uint and int). Field order
// and widths must not change.

// encParam mirrors AACENC_PARAM.
type encParam struct {
	sampleRate int32
	bitRate    int32
	nChannels  int16
	adtsUsed   int16
}

// codecBuffer mirrors VO_CODECBUFFER.
type codecBuffer struct {
	buffer unsafe.Pointer
	length uint
	time   int64
}

// audioFormat mirrors VO_AUDIO_FORMAT.
type audioFormat struct {
	sampleRate int
	channels   int
	sampleBits int
}

// outputInfo mirrors VO_AUDIO_OUTPUTINFO.
type outputInfo struct {
	format    audioFormat
	inputUsed uint
	reserved  uint
}

// memOperator mirrors VO_MEM_OPERATOR. Every entry is a native function
// pointer; zero entries are left for the library to ignore.
type memOperator struct {
	alloc   uintptr
	free    uintptr
	set     uintptr
	copy    uintptr
	check   uintptr
	compare uintptr
	move    uintptr
}

func (m memOperator) installed() bool {
	return m.alloc != 0 && m.free != 0 && m.set != 0 && m.copy != 0 && m.check != 0
}

// initUserData mirrors VO_CODEC_INIT_USERDATA.
type initUserData struct {
	memFlag   uint
	memData   unsafe.Pointer
	reserved1 uint
	reserved2 uint
}

// codecAPI is the encoder function table (VO_AUDIO_CODECAPI) of one loaded
// library. Pointer arguments must stay pinned for the duration of the call;
// Init additionally retains userData until Uninit.
type codecAPI interface {
	Init(handle *uintptr, coding int32, userData *initUserData) ResultCode
	SetParam(handle uintptr, id int32, param unsafe.Pointer) ResultCode
	SetInputData(handle uintptr, input *codecBuffer) ResultCode
	GetOutputData(handle uintptr, output *codecBuffer, info *outputInfo) ResultCode
	Uninit(handle uintptr) ResultCode

	// MemOperator returns the allocator table installed through Init.
	MemOperator() memOperator
}

// nativeMemory allocates the buffers handed to SetInputData.
type nativeMemory interface {
	Alloc(size int) (unsafe.Pointer, error)
	Free(p unsafe.Pointer)
}

// backend is a loaded encoder library.
type backend struct {
	api  codecAPI
	mem  nativeMemory
	path string
}
