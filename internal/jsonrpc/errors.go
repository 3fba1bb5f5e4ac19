package jsonrpc

import "github.com/imtaco/watch-party/internal/errors"

const (
	ErrCodeParseError errors.Code = "parse error"
	ErrClosed         errors.Code = "closed"
	// ErrDecode marks a frame that arrived intact but is not a JSON-RPC
	// message. The connection survives it.
	ErrDecode errors.Code = "decode error"
)

func ErrParse(message string) *Error {
	return &Error{
		Code:    CodeParseError,
		Message: message,
	}
}

func ErrInvalidParams(message string) *Error {
	return &Error{
		Code:    CodeInvalidParams,
		Message: message,
	}
}

func ErrInvalidRequest(message string) *Error {
	return &Error{
		Code:    CodeInvalidRequest,
		Message: message,
	}
}

func ErrMethodNotFound(method string) *Error {
	return &Error{
		Code:    CodeMethodNotFound,
		Message: "method not found: " + method,
	}
}

func ErrInternal(message string) *Error {
	return &Error{
		Code:    CodeInternalError,
		Message: message,
	}
}

// ErrCustom builds an application error; JSON-RPC reserves -32000..-32099
// for implementation defined server errors.
func ErrCustom(code int64, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}
