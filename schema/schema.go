// Package schema compiles the embedded conformance protocol and test message
// definitions into descriptors usable with dynamic messages.
package schema

import (
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/protobuf/reflect/protoreflect"

	// Well-known types resolved by desc.LoadFileDescriptor.
	_ "google.golang.org/protobuf/types/known/anypb"
	_ "google.golang.org/protobuf/types/known/durationpb"
	_ "google.golang.org/protobuf/types/known/fieldmaskpb"
	_ "google.golang.org/protobuf/types/known/structpb"
	_ "google.golang.org/protobuf/types/known/timestamppb"
	_ "google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ConformanceFile  = "conformance.proto"
	TestMessagesFile = "test_messages_proto3.proto"

	RequestMessage   = "conformance.ConformanceRequest"
	ResponseMessage  = "conformance.ConformanceResponse"
	WireFormatEnum   = "conformance.WireFormat"
	TestAllTypesName = "protobuf_test_messages.proto3.TestAllTypes"
)

//go:embed proto/*.proto
var protoFS embed.FS

// WireFormat mirrors conformance.WireFormat. Values outside the declared
// constants are legal on the wire and must be handled by callers.
type WireFormat int32

const (
	WireFormatUnspecified WireFormat = 0
	WireFormatProtobuf    WireFormat = 1
	WireFormatJSON        WireFormat = 2
	WireFormatJSPB        WireFormat = 3
	WireFormatTextFormat  WireFormat = 4
)

// Schema holds the descriptors the harness works with.
type Schema struct {
	Request      protoreflect.MessageDescriptor
	Response     protoreflect.MessageDescriptor
	TestAllTypes protoreflect.MessageDescriptor
	WireFormat   protoreflect.EnumDescriptor
}

// FormatName returns the enum value name of f, or its number for values the
// schema does not declare.
func (s *Schema) FormatName(f WireFormat) string {
	v := s.WireFormat.Values().ByNumber(protoreflect.EnumNumber(f))
	if v == nil {
		return strconv.FormatInt(int64(f), 10)
	}
	return string(v.Name())
}

// ParseFormat resolves an enum value name (e.g. "PROTOBUF").
func (s *Schema) ParseFormat(name string) (WireFormat, bool) {
	v := s.WireFormat.Values().ByName(protoreflect.Name(name))
	if v == nil {
		return 0, false
	}
	return WireFormat(v.Number()), true
}

// Load parses the embedded proto sources.
func Load() (*Schema, error) {
	sources, err := readSources()
	if err != nil {
		return nil, err
	}

	fds, err := protoparse.Parser{
		Accessor:     protoparse.FileContentsFromMap(sources),
		LookupImport: desc.LoadFileDescriptor,
	}.ParseFiles(ConformanceFile, TestMessagesFile)
	if err != nil {
		return nil, fmt.Errorf("can't parse proto files: %w", err)
	}

	s := new(Schema)
	for _, item := range []struct {
		name string
		dst  *protoreflect.MessageDescriptor
	}{
		{RequestMessage, &s.Request},
		{ResponseMessage, &s.Response},
		{TestAllTypesName, &s.TestAllTypes},
	} {
		md := findMessage(fds, item.name)
		if md == nil {
			return nil, fmt.Errorf("message %s not found", item.name)
		}
		*item.dst = md.UnwrapMessage()
	}

	for _, fd := range fds {
		if ed := fd.FindEnum(WireFormatEnum); ed != nil {
			s.WireFormat = ed.UnwrapEnum()
		}
	}
	if s.WireFormat == nil {
		return nil, fmt.Errorf("enum %s not found", WireFormatEnum)
	}

	return s, nil
}

var (
	once   sync.Once
	cached *Schema
	errLd  error
)

// Default returns the schema compiled once per process.
func Default() (*Schema, error) {
	once.Do(func() {
		cached, errLd = Load()
	})
	return cached, errLd
}

// MustDefault is Default for tests and init paths.
func MustDefault() *Schema {
	s, err := Default()
	if err != nil {
		panic(fmt.Errorf("loading schema: %w", err))
	}
	return s
}

func findMessage(fds []*desc.FileDescriptor, name string) *desc.MessageDescriptor {
	for _, fd := range fds {
		if md := fd.FindMessage(name); md != nil {
			return md
		}
	}
	return nil
}

func readSources() (map[string]string, error) {
	entries, err := fs.ReadDir(protoFS, "proto")
	if err != nil {
		return nil, fmt.Errorf("reading embedded protos: %w", err)
	}
	sources := make(map[string]string, len(entries))
	for _, e := range entries {
		b, err := protoFS.ReadFile("proto/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		sources[e.Name()] = string(b)
	}
	return sources, nil
}
