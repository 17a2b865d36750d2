package conformance

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/ozontech/conformer/codec"
)

// Result is the outcome of one test case. Exactly one of ParseError,
// RuntimeError, ProtobufPayload or Skipped.
type Result interface {
	Kind() Kind
	isResult()
}

type Kind int

const (
	KindParseError Kind = iota
	KindRuntimeError
	KindProtobufPayload
	KindSkipped
)

var kindNames = [...]string{
	KindParseError:      "parse_error",
	KindRuntimeError:    "runtime_error",
	KindProtobufPayload: "protobuf_payload",
	KindSkipped:         "skipped",
}

// String returns the response oneof field name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

type (
	ParseError      string
	RuntimeError    string
	ProtobufPayload []byte
	Skipped         string
)

func (ParseError) Kind() Kind      { return KindParseError }
func (RuntimeError) Kind() Kind    { return KindRuntimeError }
func (ProtobufPayload) Kind() Kind { return KindProtobufPayload }
func (Skipped) Kind() Kind         { return KindSkipped }

func (ParseError) isResult()      {}
func (RuntimeError) isResult()    {}
func (ProtobufPayload) isResult() {}
func (Skipped) isResult()         {}

var errUnexpectedResult = errors.New("unexpected result")

// ResponseCodec converts results to and from conformance.ConformanceResponse.
type ResponseCodec struct {
	c      *codec.Dynamic
	fields [len(kindNames)]protoreflect.FieldDescriptor
	oneof  protoreflect.OneofDescriptor
}

func NewResponseCodec(c *codec.Dynamic) *ResponseCodec {
	rc := &ResponseCodec{c: c}
	rc.oneof = c.Descriptor().Oneofs().ByName("result")
	for k, name := range kindNames {
		rc.fields[k] = c.Descriptor().Fields().ByName(protoreflect.Name(name))
		if rc.fields[k] == nil {
			panic("assertion error: response has no field " + name)
		}
	}
	return rc
}

// Message builds the response message carrying r.
func (rc *ResponseCodec) Message(r Result) proto.Message {
	m := rc.c.New()
	fd := rc.fields[r.Kind()]
	switch r := r.(type) {
	case ParseError:
		m.Set(fd, protoreflect.ValueOfString(string(r)))
	case RuntimeError:
		m.Set(fd, protoreflect.ValueOfString(string(r)))
	case Skipped:
		m.Set(fd, protoreflect.ValueOfString(string(r)))
	case ProtobufPayload:
		m.Set(fd, protoreflect.ValueOfBytes([]byte(r)))
	default:
		panic(fmt.Sprintf("assertion error: unknown result %T", r))
	}
	return m
}

// MarshalAppend appends the encoded response for r to b.
func (rc *ResponseCodec) MarshalAppend(b []byte, r Result) ([]byte, error) {
	m := rc.Message(r)
	size := rc.c.Size(m)
	start := len(b)
	b, err := rc.c.MarshalAppend(b, m)
	if err != nil {
		return b, fmt.Errorf("marshal response: %w", err)
	}
	if len(b)-start != size {
		panic(fmt.Sprintf("assertion error: response size %d, encoded %d", size, len(b)-start))
	}
	return b, nil
}

// Unmarshal decodes an encoded response.
func (rc *ResponseCodec) Unmarshal(b []byte) (Result, error) {
	m, err := rc.c.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	msg := m.ProtoReflect()
	fd := msg.WhichOneof(rc.oneof)
	if fd == nil {
		return nil, fmt.Errorf("%w: empty result", errUnexpectedResult)
	}

	v := msg.Get(fd)
	switch fd {
	case rc.fields[KindParseError]:
		return ParseError(v.String()), nil
	case rc.fields[KindRuntimeError]:
		return RuntimeError(v.String()), nil
	case rc.fields[KindSkipped]:
		return Skipped(v.String()), nil
	case rc.fields[KindProtobufPayload]:
		return ProtobufPayload(v.Bytes()), nil
	}
	return nil, fmt.Errorf("%w: %s", errUnexpectedResult, fd.Name())
}
