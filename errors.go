package aacenc

import (
	"errors"
	"fmt"
)

// ResultCode is a VO_U32 result returned by the native encoder.
type ResultCode uint32

// Result codes from voIndex.h that the encoder reports.
const (
	resultNone              ResultCode = 0x00000000
	resultFinish            ResultCode = 0x00000001
	resultFailed            ResultCode = 0x80000001
	resultOutOfMemory       ResultCode = 0x80000002
	resultNotImplemented    ResultCode = 0x80000003
	resultInvalidArgument   ResultCode = 0x80000004
	resultInputBufferSmall  ResultCode = 0x80000005
	resultOutputBufferSmall ResultCode = 0x80000006
	resultWrongStatus       ResultCode = 0x80000007
	resultWrongParamID      ResultCode = 0x80000008
)

// Errors returned by the binding. Native result codes map one-to-one onto
// ErrFailed through ErrUnknown.
var (
	ErrFailed               = errors.New("aacenc: operation failed")
	ErrOutOfMemory          = errors.New("aacenc: out of memory")
	ErrNotImplemented       = errors.New("aacenc: not implemented")
	ErrInvalidArgument      = errors.New("aacenc: invalid argument")
	ErrInputBufferTooSmall  = errors.New("aacenc: input buffer too small")
	ErrOutputBufferTooSmall = errors.New("aacenc: output buffer too small")
	ErrUnknown              = errors.New("aacenc: unknown error")

	ErrClosed            = errors.New("aacenc: encoder closed")
	ErrRegionOutOfRange  = errors.New("aacenc: input region out of range")
	ErrLibraryNotFound   = errors.New("aacenc: libvo-aacenc not available")
	ErrProviderNotFound  = errors.New("provider not available")
	ErrCodecNotSupported = errors.New("codec not supported by provider")
)

// ResultError is a non-success result reported by a native call.
type ResultError struct {
	Op   string     // Native call that failed, e.g. "SetParam"
	Code ResultCode // Raw result code
	Err  error      // One of the sentinel errors above
}

func (e *ResultError) Error() string {
	if e.Err == ErrUnknown {
		return fmt.Sprintf("%s: %v (code 0x%08x)", e.Op, e.Err, uint32(e.Code))
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResultError) Unwrap() error { return e.Err }

// errorForCode returns the sentinel for a non-success code.
func errorForCode(code ResultCode) error {
	switch code {
	case resultFailed:
		return ErrFailed
	case resultOutOfMemory:
		return ErrOutOfMemory
	case resultNotImplemented:
		return ErrNotImplemented
	case resultInvalidArgument:
		return ErrInvalidArgument
	case resultInputBufferSmall:
		return ErrInputBufferTooSmall
	case resultOutputBufferSmall:
		return ErrOutputBufferTooSmall
	default:
		return ErrUnknown
	}
}

// checkResult maps the result of native call op to an error.
func checkResult(op string, code ResultCode) error {
	if code == resultNone {
		return nil
	}
	return &ResultError{Op: op, Code: code, Err: errorForCode(code)}
}
