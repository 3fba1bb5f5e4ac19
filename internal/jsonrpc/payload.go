package jsonrpc

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/utils"
)

type messageType int

const (
	typeUnknown messageType = iota
	typeRequest
	typeResponse
	typeNotification
)

const jsonRPCVersion = "2.0"

// Request is an inbound call or notification; ID is nil for notifications.
type Request struct {
	ID     *ID              `json:"id"`
	Method string           `json:"method"`
	Params *json.RawMessage `json:"params,omitempty"`
}

func (r *Request) IsNotification() bool {
	return !r.ID.IsSet()
}

type message struct {
	JSONRPC string `json:"jsonrpc,omitempty"`
	ID      *ID    `json:"id,omitempty"`

	Method *string          `json:"method,omitempty"`
	Params *json.RawMessage `json:"params,omitempty"`

	Result *json.RawMessage `json:"result,omitempty"`
	Error  *Error           `json:"error,omitempty"`

	msgType messageType `json:"-"`
}

// errorMessage is a response whose id could not be read; the id goes out as null.
type errorMessage struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *ID    `json:"id"`
	Error   *Error `json:"error"`
}

// UnmarshalJSON keeps a present "result": null as a non-nil Result, which
// plain decoding would turn into nil.
func (m *message) UnmarshalJSON(data []byte) error {
	type plain message
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Result == nil {
		var fields struct {
			Result json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(data, &fields); err != nil {
			return err
		}
		if fields.Result != nil {
			p.Result = &fields.Result
		}
	}
	*m = message(p)
	return nil
}

func (m *message) classify() {
	m.msgType = typeUnknown

	if m.JSONRPC != "" && m.JSONRPC != jsonRPCVersion {
		return
	}

	switch {
	case m.Method != nil:
		if m.Result != nil || m.Error != nil {
			return
		}
		if m.ID.IsSet() {
			m.msgType = typeRequest
		} else {
			m.msgType = typeNotification
		}
	case m.Result != nil || m.Error != nil:
		if m.ID.IsSet() {
			m.msgType = typeResponse
		}
	}
}

func marshalRaw(v any) (*json.RawMessage, error) {
	bs, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(ErrCodeParseError, err, "marshal payload")
	}
	return utils.Ptr(json.RawMessage(bs)), nil
}

func newRequestMessage(method string, params any) (*message, error) {
	raw, err := marshalRaw(params)
	if err != nil {
		return nil, err
	}
	return &message{
		JSONRPC: jsonRPCVersion,
		ID:      NewStringID(uuid.NewString()),
		Method:  &method,
		Params:  raw,
		msgType: typeRequest,
	}, nil
}

func newNotificationMessage(method string, params any) (*message, error) {
	raw, err := marshalRaw(params)
	if err != nil {
		return nil, err
	}
	return &message{
		JSONRPC: jsonRPCVersion,
		Method:  &method,
		Params:  raw,
		msgType: typeNotification,
	}, nil
}

func newResponseMessage(id ID, result any, rpcErr *Error) (*message, error) {
	m := &message{
		JSONRPC: jsonRPCVersion,
		ID:      &id,
		Error:   rpcErr,
		msgType: typeResponse,
	}
	if rpcErr == nil {
		raw, err := marshalRaw(result)
		if err != nil {
			return nil, err
		}
		m.Result = raw
	}
	return m, nil
}

// ID is a JSON-RPC 2.0 request id, either a string or an unsigned integer.
type ID struct {
	Num      uint64
	Str      string
	isString bool
}

func NewStringID(id string) *ID {
	return &ID{Str: id, isString: true}
}

func NewIntID(id uint64) *ID {
	return &ID{Num: id}
}

// IsSet reports whether the id is present. A zero integer id counts as unset.
func (id *ID) IsSet() bool {
	return id != nil && (id.isString || id.Num != 0)
}

func (id *ID) String() string {
	if id.isString {
		return strconv.Quote(id.Str)
	}
	return strconv.FormatUint(id.Num, 10)
}

func (id *ID) MarshalJSON() ([]byte, error) {
	if id.isString {
		return json.Marshal(id.Str)
	}
	return json.Marshal(id.Num)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID{Str: s, isString: true}
		return nil
	}
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID{Num: n}
	return nil
}

// Error is the JSON-RPC error object.
type Error struct {
	Code    int64            `json:"code"`
	Message string           `json:"message"`
	Data    *json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// http://www.jsonrpc.org/specification#error_object
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)
