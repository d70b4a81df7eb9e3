package app

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/haierkeys/fast-library-service/pkg/code"

	"github.com/bytedance/sonic"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// 信封字段名
const (
	FieldAction    = "action"
	FieldRequestID = "requestId"
	FieldLibraryID = "libraryId"
	FieldPayload   = "payload"
	FieldType      = "type"
	FieldData      = "data"
	FieldStatus    = "status"
	FieldError     = "error"
)

// MessageFormatError is the reply text for frames that are not JSON objects.
var MessageFormatError = code.ErrorInvalidMessage.Msg()

const envelopeSchemaURL = "mem://library/envelope.schema.json"

const envelopeSchema = `{
  "type": "object",
  "required": ["action", "payload"],
  "properties": {
    "action": {"type": "string", "minLength": 1},
    "requestId": {"type": ["string", "number", "null"]},
    "libraryId": {"type": ["string", "null"]},
    "payload": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"type": "string", "minLength": 1},
        "data": {"type": ["object", "array", "null"]}
      }
    }
  }
}`

// Route 分发表的键
type Route struct {
	Action string
	Type   string
}

// UnsupportedRoute 未注册的路由在观测钩子中统一记为该值
var UnsupportedRoute = Route{Action: "unsupported", Type: "unsupported"}

func (r Route) String() string {
	return r.Action + " " + r.Type
}

// Envelope 一条请求消息
// 保留原始 JSON 对象，回复时原样回显未知字段
type Envelope struct {
	Action    string
	RequestID any
	LibraryID string
	Type      string

	raw     map[string]any
	payload map[string]any
}

// Route 返回 (action, type)
func (e *Envelope) Route() Route {
	return Route{Action: e.Action, Type: e.Type}
}

// Data 返回 payload.data 的 JSON 编码，缺失时为 nil
func (e *Envelope) Data() []byte {
	d, ok := e.payload[FieldData]
	if !ok || d == nil {
		return nil
	}
	b, err := sonic.Marshal(d)
	if err != nil {
		return nil
	}
	return b
}

// RawData 返回 payload.data 的解码值
func (e *Envelope) RawData() any {
	return e.payload[FieldData]
}

// EnvelopeCodec 解析、校验并编码信封
type EnvelopeCodec struct {
	schema *jsonschema.Schema
}

// NewEnvelopeCodec 编译信封 JSON Schema
func NewEnvelopeCodec() (*EnvelopeCodec, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(envelopeSchema))
	if err != nil {
		return nil, fmt.Errorf("parse envelope schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(envelopeSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add envelope schema: %w", err)
	}
	sch, err := c.Compile(envelopeSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile envelope schema: %w", err)
	}
	return &EnvelopeCodec{schema: sch}, nil
}

// ErrMalformed 消息不是 JSON 对象
type ErrMalformed struct{ Cause error }

func (e *ErrMalformed) Error() string { return MessageFormatError }
func (e *ErrMalformed) Unwrap() error { return e.Cause }

// Decode 解析一条消息
// 返回 *ErrMalformed 表示无法回显，其它错误时 Envelope 仍可用于回显
func (c *EnvelopeCodec) Decode(data []byte) (*Envelope, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, &ErrMalformed{Cause: err}
	}
	raw, ok := inst.(map[string]any)
	if !ok {
		return nil, &ErrMalformed{Cause: fmt.Errorf("message is %T, want object", inst)}
	}

	env := &Envelope{raw: raw}
	env.Action, _ = raw[FieldAction].(string)
	env.RequestID = raw[FieldRequestID]
	env.LibraryID, _ = raw[FieldLibraryID].(string)
	if p, ok := raw[FieldPayload].(map[string]any); ok {
		env.payload = p
		env.Type, _ = p[FieldType].(string)
	}

	if err := c.schema.Validate(inst); err != nil {
		return env, err
	}
	return env, nil
}

// Success 回显信封并将 payload.data 替换为 result
func (c *EnvelopeCodec) Success(env *Envelope, result any) ([]byte, error) {
	out := make(map[string]any, len(env.raw))
	for k, v := range env.raw {
		out[k] = v
	}
	payload := make(map[string]any, len(env.payload)+1)
	for k, v := range env.payload {
		payload[k] = v
	}
	payload[FieldData] = result
	out[FieldPayload] = payload
	return sonic.Marshal(out)
}

// Failure 回显信封并附加 status:"error" 与 error 消息
func (c *EnvelopeCodec) Failure(env *Envelope, message string) ([]byte, error) {
	out := make(map[string]any, len(env.raw)+2)
	for k, v := range env.raw {
		out[k] = v
	}
	out[FieldStatus] = "error"
	out[FieldError] = message
	return sonic.Marshal(out)
}

// Malformed 无法解析的消息的回复
func (c *EnvelopeCodec) Malformed() []byte {
	b, _ := sonic.Marshal(map[string]any{FieldStatus: "error", FieldError: MessageFormatError})
	return b
}
