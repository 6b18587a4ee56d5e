//go:build (darwin || linux) && cgo && !novoaacenc

// libvo-aacenc support using CGO.
//
// Links directly against libvo-aacenc. cgo cannot call C function pointers,
// so each entry of the codec API table gets a small C trampoline.

package aacenc

/*
#cgo LDFLAGS: -lvo-aacenc

#include <stdlib.h>
#include <vo-aacenc/voAAC.h>
#include <vo-aacenc/cmnMemory.h>

static VO_AUDIO_CODECAPI aacenc_api;

static VO_U32 aacenc_load_api(void) {
	return voGetAACEncAPI(&aacenc_api);
}

static VO_U32 aacenc_init(VO_HANDLE *handle, VO_S32 coding, VO_CODEC_INIT_USERDATA *user) {
	return aacenc_api.Init(handle, (VO_AUDIO_CODINGTYPE)coding, user);
}

static VO_U32 aacenc_set_param(VO_HANDLE handle, VO_S32 id, VO_PTR data) {
	return aacenc_api.SetParam(handle, id, data);
}

static VO_U32 aacenc_set_input_data(VO_HANDLE handle, VO_CODECBUFFER *input) {
	return aacenc_api.SetInputData(handle, input);
}

static VO_U32 aacenc_get_output_data(VO_HANDLE handle, VO_CODECBUFFER *output, VO_AUDIO_OUTPUTINFO *info) {
	return aacenc_api.GetOutputData(handle, output, info);
}

static VO_U32 aacenc_uninit(VO_HANDLE handle) {
	return aacenc_api.Uninit(handle);
}

static void aacenc_mem_operator(VO_MEM_OPERATOR *op) {
	op->Alloc = cmnMemAlloc;
	op->Copy = cmnMemCopy;
	op->Free = cmnMemFree;
	op->Set = cmnMemSet;
	op->Check = cmnMemCheck;
}
*/
import "C"

import (
	"sync"
	"unsafe"
)

var (
	voOnce    sync.Once
	voInitErr error
	voBackend *backend
)

// loadBackend resolves the codec API table once per process.
func loadBackend() (*backend, error) {
	voOnce.Do(func() {
		if err := checkResult("voGetAACEncAPI", ResultCode(C.aacenc_load_api())); err != nil {
			voInitErr = err
			return
		}
		api := &cgoCodecAPI{}
		C.aacenc_mem_operator((*C.VO_MEM_OPERATOR)(unsafe.Pointer(&api.memOp)))
		voBackend = &backend{api: api, mem: cMemory{}, path: "linked"}
	})
	return voBackend, voInitErr
}

// cgoCodecAPI drives the statically linked function table.
type cgoCodecAPI struct {
	memOp memOperator
}

func (a *cgoCodecAPI) Init(handle *uintptr, coding int32, userData *initUserData) ResultCode {
	return ResultCode(C.aacenc_init(
		(*C.VO_HANDLE)(unsafe.Pointer(handle)),
		C.VO_S32(coding),
		(*C.VO_CODEC_INIT_USERDATA)(unsafe.Pointer(userData)),
	))
}

func (a *cgoCodecAPI) SetParam(handle uintptr, id int32, param unsafe.Pointer) ResultCode {
	return ResultCode(C.aacenc_set_param(C.VO_HANDLE(unsafe.Pointer(handle)), C.VO_S32(id), C.VO_PTR(param)))
}

func (a *cgoCodecAPI) SetInputData(handle uintptr, input *codecBuffer) ResultCode {
	return ResultCode(C.aacenc_set_input_data(
		C.VO_HANDLE(unsafe.Pointer(handle)),
		(*C.VO_CODECBUFFER)(unsafe.Pointer(input)),
	))
}

func (a *cgoCodecAPI) GetOutputData(handle uintptr, output *codecBuffer, info *outputInfo) ResultCode {
	return ResultCode(C.aacenc_get_output_data(
		C.VO_HANDLE(unsafe.Pointer(handle)),
		(*C.VO_CODECBUFFER)(unsafe.Pointer(output)),
		(*C.VO_AUDIO_OUTPUTINFO)(unsafe.Pointer(info)),
	))
}

func (a *cgoCodecAPI) Uninit(handle uintptr) ResultCode {
	return ResultCode(C.aacenc_uninit(C.VO_HANDLE(unsafe.Pointer(handle))))
}

func (a *cgoCodecAPI) MemOperator() memOperator { return a.memOp }

// cMemory allocates input copies on the C heap.
type cMemory struct{}

func (cMemory) Alloc(size int) (unsafe.Pointer, error) {
	if size < 0 {
		return nil, ErrInvalidArgument
	}
	p := C.malloc(C.size_t(max(size, 1)))
	if p == nil {
		return nil, ErrOutOfMemory
	}
	return p, nil
}

func (cMemory) Free(p unsafe.Pointer) { C.free(p) }

// IsAvailable reports whether libvo-aacenc is usable.
// With CGO the library is linked at build time.
func IsAvailable() bool {
	_, err := loadBackend()
	return err == nil
}

// LibraryPath returns "linked" for CGO builds.
func LibraryPath() string {
	if !IsAvailable() {
		return ""
	}
	return "linked"
}

func init() {
	registerAudioEncoder(AudioCodecAAC, ProviderVOAACEnc, func(config AudioEncoderConfig) (AudioEncoder, error) {
		return NewAACEncoder(config)
	})
	if IsAvailable() {
		setProviderAvailable(ProviderVOAACEnc)
	}
}
