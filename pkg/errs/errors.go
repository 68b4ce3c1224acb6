package errs

import (
	"errors"
	"fmt"
)

type ErrorCode uint

const (
	ErrUnknown ErrorCode = iota
	ErrCodeMalformedFeature
	ErrCodeUnsupportedCRS
	ErrCodeInvalidTolerance
	ErrCodeDisconnectedResult
	ErrCodeNotFound
	ErrCodeBadParamInput
	ErrCodeInternal
)

// sentinels for errors.Is. every *Error with the same code matches.
var (
	ErrMalformedFeature   = &Error{code: ErrCodeMalformedFeature, msg: "malformed feature"}
	ErrUnsupportedCRS     = &Error{code: ErrCodeUnsupportedCRS, msg: "unsupported crs"}
	ErrInvalidTolerance   = &Error{code: ErrCodeInvalidTolerance, msg: "invalid tolerance"}
	ErrDisconnectedResult = &Error{code: ErrCodeDisconnectedResult, msg: "disconnected result"}
	ErrNotFound           = &Error{code: ErrCodeNotFound, msg: "not found"}
	ErrBadParamInput      = &Error{code: ErrCodeBadParamInput, msg: "bad param input"}
	ErrInternal           = &Error{code: ErrCodeInternal, msg: "internal error"}
)

type Error struct {
	orig error
	msg  string
	code ErrorCode
}

func (e *Error) Error() string {
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}

	return e.msg
}

func (e *Error) Unwrap() error {
	return e.orig
}

func (e *Error) Code() ErrorCode {
	return e.code
}

func (e *Error) Message() string {
	return e.msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.code == e.code
}

// WrapErrorf returns a wrapped error with an error code.
func WrapErrorf(orig error, code ErrorCode, format string, a ...interface{}) error {
	return &Error{
		code: code,
		orig: orig,
		msg:  fmt.Sprintf(format, a...),
	}
}

// NewErrorf returns a new error with an error code and no wrapped cause.
func NewErrorf(code ErrorCode, format string, a ...interface{}) error {
	return WrapErrorf(nil, code, format, a...)
}

// Code returns the code of the outermost *Error in err's chain, or ErrUnknown.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ErrUnknown
}
