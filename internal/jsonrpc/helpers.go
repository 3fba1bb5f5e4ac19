package jsonrpc

import (
	"encoding/json"

	"github.com/imtaco/watch-party/internal/validation"
)

var validate = validation.New()

// ShouldBindParams decodes params into v and runs its validate tags.
func ShouldBindParams(params *json.RawMessage, v any) error {
	if params == nil {
		return ErrInvalidParams("params required")
	}
	if err := json.Unmarshal(*params, v); err != nil {
		return ErrInvalidParams("invalid params")
	}
	if err := validate.Struct(v); err != nil {
		fields := validation.FormatValidationError(err)
		if len(fields) == 0 {
			return ErrInvalidParams("invalid params")
		}
		data, _ := json.Marshal(fields)
		return &Error{
			Code:    CodeInvalidParams,
			Message: "invalid params",
			Data:    (*json.RawMessage)(&data),
		}
	}
	return nil
}
