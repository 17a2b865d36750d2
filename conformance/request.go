package conformance

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/ozontech/conformer/codec"
	"github.com/ozontech/conformer/schema"
)

// Payload is the request payload: nil, ProtobufInput or JSONInput.
type Payload interface {
	isPayload()
}

type (
	ProtobufInput []byte
	JSONInput     string
)

func (ProtobufInput) isPayload() {}
func (JSONInput) isPayload()     {}

type Request struct {
	OutputFormat schema.WireFormat
	MessageType  string
	Payload      Payload
}

// RequestCodec converts conformance.ConformanceRequest to and from Request.
type RequestCodec struct {
	c           *codec.Dynamic
	format      protoreflect.FieldDescriptor
	messageType protoreflect.FieldDescriptor
	payload     protoreflect.OneofDescriptor
	protobuf    protoreflect.FieldDescriptor
	json        protoreflect.FieldDescriptor
}

func NewRequestCodec(c *codec.Dynamic) *RequestCodec {
	fields := c.Descriptor().Fields()
	rc := &RequestCodec{
		c:           c,
		format:      fields.ByName("requested_output_format"),
		messageType: fields.ByName("message_type"),
		payload:     c.Descriptor().Oneofs().ByName("payload"),
		protobuf:    fields.ByName("protobuf_payload"),
		json:        fields.ByName("json_payload"),
	}
	if rc.format == nil || rc.messageType == nil || rc.payload == nil || rc.protobuf == nil || rc.json == nil {
		panic("assertion error: unexpected request descriptor " + string(c.Descriptor().FullName()))
	}
	return rc
}

// Unmarshal decodes a request. The error carries the codec detail unchanged.
func (rc *RequestCodec) Unmarshal(b []byte) (*Request, error) {
	m, err := rc.c.Unmarshal(b)
	if err != nil {
		return nil, err
	}
	msg := m.ProtoReflect()

	req := &Request{
		OutputFormat: schema.WireFormat(msg.Get(rc.format).Enum()),
		MessageType:  msg.Get(rc.messageType).String(),
	}
	switch msg.WhichOneof(rc.payload) {
	case rc.protobuf:
		req.Payload = ProtobufInput(msg.Get(rc.protobuf).Bytes())
	case rc.json:
		req.Payload = JSONInput(msg.Get(rc.json).String())
	}
	return req, nil
}

// Message builds the request message for r.
func (rc *RequestCodec) Message(r *Request) proto.Message {
	m := rc.c.New()
	if r.OutputFormat != schema.WireFormatUnspecified {
		m.Set(rc.format, protoreflect.ValueOfEnum(protoreflect.EnumNumber(r.OutputFormat)))
	}
	if r.MessageType != "" {
		m.Set(rc.messageType, protoreflect.ValueOfString(r.MessageType))
	}
	switch p := r.Payload.(type) {
	case nil:
	case ProtobufInput:
		m.Set(rc.protobuf, protoreflect.ValueOfBytes([]byte(p)))
	case JSONInput:
		m.Set(rc.json, protoreflect.ValueOfString(string(p)))
	}
	return m
}

// MarshalAppend appends the encoded request r to b.
func (rc *RequestCodec) MarshalAppend(b []byte, r *Request) ([]byte, error) {
	return rc.c.MarshalAppend(b, rc.Message(r))
}
