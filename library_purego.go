//go:build (darwin || linux) && !cgo && !novoaacenc

// libvo-aacenc support using purego.
//
// The library is opened at runtime; the codec is driven through the function
// table returned by voGetAACEncAPI, so only two kinds of symbols are needed:
// voGetAACEncAPI and the cmnMem* allocator family.

package aacenc

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"
)

var (
	voOnce    sync.Once
	voHandle  uintptr
	voInitErr error
	voBackend *backend
)

// audioCodecAPI mirrors VO_AUDIO_CODECAPI.
type audioCodecAPI struct {
	init          uintptr
	setInputData  uintptr
	getOutputData uintptr
	setParam      uintptr
	getParam      uintptr
	uninit        uintptr
}

var voGetAACEncAPI func(api uintptr) uint32

// loadBackend opens libvo-aacenc once per process.
func loadBackend() (*backend, error) {
	voOnce.Do(func() {
		voInitErr = loadVOAACEncLib()
		if voInitErr != nil {
			Logger().Debug("libvo-aacenc unavailable", zap.Error(voInitErr))
		}
	})
	return voBackend, voInitErr
}

func loadVOAACEncLib() error {
	var lastErr error
	for _, path := range libraryPaths() {
		handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			lastErr = err
			continue
		}

		api, err := loadVOAACEncSymbols(handle)
		if err != nil {
			purego.Dlclose(handle)
			lastErr = err
			continue
		}

		voHandle = handle
		voBackend = &backend{
			api:  api,
			mem:  newPinnedMemory(),
			path: path,
		}
		Logger().Info("loaded libvo-aacenc", zap.String("path", path))
		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrLibraryNotFound, lastErr)
	}
	return fmt.Errorf("%w: not found in any standard location", ErrLibraryNotFound)
}

func loadVOAACEncSymbols(handle uintptr) (*puregoCodecAPI, error) {
	sym, err := purego.Dlsym(handle, "voGetAACEncAPI")
	if err != nil {
		return nil, err
	}
	purego.RegisterFunc(&voGetAACEncAPI, sym)

	api := &puregoCodecAPI{}
	if ret := ResultCode(voGetAACEncAPI(uintptr(unsafe.Pointer(&api.table)))); ret != resultNone {
		return nil, checkResult("voGetAACEncAPI", ret)
	}
	if api.table.init == 0 || api.table.setParam == 0 || api.table.setInputData == 0 ||
		api.table.getOutputData == 0 || api.table.uninit == 0 {
		return nil, errors.New("voGetAACEncAPI returned an incomplete function table")
	}

	// Missing allocator symbols leave the table empty and the library falls
	// back to its built-in allocator.
	lookup := func(name string) uintptr {
		fn, err := purego.Dlsym(handle, name)
		if err != nil {
			return 0
		}
		return fn
	}
	api.memOp = memOperator{
		alloc:   lookup("cmnMemAlloc"),
		free:    lookup("cmnMemFree"),
		set:     lookup("cmnMemSet"),
		copy:    lookup("cmnMemCopy"),
		check:   lookup("cmnMemCheck"),
		compare: lookup("cmnMemCompare"),
		move:    lookup("cmnMemMove"),
	}
	return api, nil
}

// puregoCodecAPI calls the native function table with purego.SyscallN.
type puregoCodecAPI struct {
	table audioCodecAPI
	memOp memOperator
}

func (a *puregoCodecAPI) Init(handle *uintptr, coding int32, userData *initUserData) ResultCode {
	r1, _, _ := purego.SyscallN(a.table.init,
		uintptr(unsafe.Pointer(handle)),
		uintptr(coding),
		uintptr(unsafe.Pointer(userData)),
	)
	runtime.KeepAlive(handle)
	runtime.KeepAlive(userData)
	return ResultCode(uint32(r1))
}

func (a *puregoCodecAPI) SetParam(handle uintptr, id int32, param unsafe.Pointer) ResultCode {
	r1, _, _ := purego.SyscallN(a.table.setParam, handle, uintptr(id), uintptr(param))
	runtime.KeepAlive(param)
	return ResultCode(uint32(r1))
}

func (a *puregoCodecAPI) SetInputData(handle uintptr, input *codecBuffer) ResultCode {
	r1, _, _ := purego.SyscallN(a.table.setInputData, handle, uintptr(unsafe.Pointer(input)))
	runtime.KeepAlive(input)
	return ResultCode(uint32(r1))
}

func (a *puregoCodecAPI) GetOutputData(handle uintptr, output *codecBuffer, info *outputInfo) ResultCode {
	r1, _, _ := purego.SyscallN(a.table.getOutputData, handle,
		uintptr(unsafe.Pointer(output)),
		uintptr(unsafe.Pointer(info)),
	)
	runtime.KeepAlive(output)
	runtime.KeepAlive(info)
	return ResultCode(uint32(r1))
}

func (a *puregoCodecAPI) Uninit(handle uintptr) ResultCode {
	r1, _, _ := purego.SyscallN(a.table.uninit, handle)
	return ResultCode(uint32(r1))
}

func (a *puregoCodecAPI) MemOperator() memOperator { return a.memOp }

// pinnedMemory hands out Go buffers pinned until Free, so the codec may keep
// pointers to them between SetInputData and GetOutputData.
type pinnedMemory struct {
	mu   sync.Mutex
	live map[unsafe.Pointer]*runtime.Pinner
}

func newPinnedMemory() *pinnedMemory {
	return &pinnedMemory{live: make(map[unsafe.Pointer]*runtime.Pinner)}
}

func (m *pinnedMemory) Alloc(size int) (unsafe.Pointer, error) {
	if size < 0 {
		return nil, ErrInvalidArgument
	}
	// malloc(0) semantics: hand out a unique, valid pointer.
	buf := make([]byte, max(size, 1))
	p := unsafe.Pointer(&buf[0])

	pinner := &runtime.Pinner{}
	pinner.Pin(p)

	m.mu.Lock()
	m.live[p] = pinner
	m.mu.Unlock()
	return p, nil
}

func (m *pinnedMemory) Free(p unsafe.Pointer) {
	m.mu.Lock()
	pinner, ok := m.live[p]
	delete(m.live, p)
	m.mu.Unlock()
	if ok {
		pinner.Unpin()
	}
}

// IsAvailable reports whether libvo-aacenc could be loaded.
func IsAvailable() bool {
	_, err := loadBackend()
	return err == nil
}

// LibraryPath returns the path the library was loaded from, or "" when it is
// unavailable.
func LibraryPath() string {
	b, err := loadBackend()
	if err != nil {
		return ""
	}
	return b.path
}

func init() {
	registerAudioEncoder(AudioCodecAAC, ProviderVOAACEnc, func(config AudioEncoderConfig) (AudioEncoder, error) {
		return NewAACEncoder(config)
	})
	if IsAvailable() {
		setProviderAvailable(ProviderVOAACEnc)
	}
}
