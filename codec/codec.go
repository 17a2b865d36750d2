// Package codec describes the message codec driven by the harness and
// provides its google.golang.org/protobuf implementation.
package codec

import (
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Codec is the contract the harness relies on for a single message type.
// Size must equal the length MarshalAppend produces for the same message.
type Codec interface {
	Descriptor() protoreflect.MessageDescriptor
	Unmarshal(b []byte) (proto.Message, error)
	MarshalAppend(b []byte, m proto.Message) ([]byte, error)
	Size(m proto.Message) int
	Equal(a, b proto.Message) bool
	Format(m proto.Message) string
}

// Dynamic handles messages of one descriptor as dynamicpb messages.
type Dynamic struct {
	md        protoreflect.MessageDescriptor
	marshal   proto.MarshalOptions
	unmarshal proto.UnmarshalOptions
}

func NewDynamic(md protoreflect.MessageDescriptor) *Dynamic {
	return &Dynamic{
		md:        md,
		marshal:   proto.MarshalOptions{Deterministic: true},
		unmarshal: proto.UnmarshalOptions{DiscardUnknown: false},
	}
}

func (c *Dynamic) Descriptor() protoreflect.MessageDescriptor { return c.md }

// New returns an empty message of the codec's type.
func (c *Dynamic) New() *dynamicpb.Message { return dynamicpb.NewMessage(c.md) }

func (c *Dynamic) Unmarshal(b []byte) (proto.Message, error) {
	m := c.New()
	if err := c.unmarshal.Unmarshal(b, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Dynamic) MarshalAppend(b []byte, m proto.Message) ([]byte, error) {
	return c.marshal.MarshalAppend(b, m)
}

func (c *Dynamic) Size(m proto.Message) int { return c.marshal.Size(m) }

func (c *Dynamic) Equal(a, b proto.Message) bool { return proto.Equal(a, b) }

func (c *Dynamic) Format(m proto.Message) string {
	return prototext.MarshalOptions{EmitUnknown: true}.Format(m)
}

var _ Codec = &Dynamic{}
