// Package cases reads conformance test cases from newline-delimited JSON and
// turns them into conformance requests.
//
// Each line is an object with the fields:
//
//	name          case name, required
//	output        requested output format name, PROTOBUF by default
//	message_type  fully qualified payload message name
//	payload       test message in protobuf JSON form
//	raw           base64 protobuf payload, sent as is
//	json          JSON payload string, sent as is
//	expect        expected result kind (protobuf_payload, parse_error, ...)
package cases

import (
	"errors"
	"fmt"
	"io"

	"github.com/mailru/easyjson/jlexer"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/ozontech/conformer/codec"
	"github.com/ozontech/conformer/conformance"
	"github.com/ozontech/conformer/schema"
)

type Case struct {
	Name    string
	Request conformance.Request

	Expect    conformance.Kind
	HasExpect bool
}

// Check reports whether r satisfies the case expectation.
func (c *Case) Check(r conformance.Result) error {
	if c.HasExpect && r.Kind() != c.Expect {
		return fmt.Errorf("expected %s, got %s: %s", c.Expect, r.Kind(), describe(r))
	}
	return nil
}

func describe(r conformance.Result) string {
	switch r := r.(type) {
	case conformance.ParseError:
		return string(r)
	case conformance.RuntimeError:
		return string(r)
	case conformance.Skipped:
		return string(r)
	case conformance.ProtobufPayload:
		return fmt.Sprintf("%d bytes", len(r))
	}
	return ""
}

type Decoder struct {
	schema *schema.Schema
	tests  *codec.Dynamic
	json   protojson.UnmarshalOptions
}

func NewDecoder(s *schema.Schema) *Decoder {
	return &Decoder{
		schema: s,
		tests:  codec.NewDynamic(s.TestAllTypes),
	}
}

// Unmarshal decodes one case line into c.
func (d *Decoder) Unmarshal(c *Case, b []byte) error {
	*c = Case{Request: conformance.Request{OutputFormat: schema.WireFormatProtobuf}}

	in := jlexer.Lexer{Data: b}
	var (
		payloads    int
		jsonPayload []byte
	)
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if !in.Ok() {
			break
		}
		switch key {
		case "name":
			c.Name = in.String()
		case "output":
			name := in.String()
			f, ok := d.schema.ParseFormat(name)
			if !ok {
				return fmt.Errorf("unknown output format: %q", name)
			}
			c.Request.OutputFormat = f
		case "message_type":
			c.Request.MessageType = in.String()
		case "payload":
			payloads++
			jsonPayload = in.Raw()
		case "raw":
			payloads++
			c.Request.Payload = conformance.ProtobufInput(in.Bytes())
		case "json":
			payloads++
			c.Request.Payload = conformance.JSONInput(in.String())
		case "expect":
			name := in.String()
			k, ok := conformance.ParseKind(name)
			if !ok {
				return fmt.Errorf("unknown result kind: %q", name)
			}
			c.Expect, c.HasExpect = k, true
		default:
			return fmt.Errorf("unknown field: %s", key)
		}
		in.WantComma()
	}
	in.Delim('}')
	in.Consumed()
	if err := in.Error(); err != nil {
		return fmt.Errorf("parse case: %w", err)
	}

	if c.Name == "" {
		return errors.New(`"name" is required`)
	}
	if payloads > 1 {
		return fmt.Errorf("case %s: only one of payload, raw, json is allowed", c.Name)
	}

	if jsonPayload != nil {
		m := d.tests.New()
		if err := d.json.Unmarshal(jsonPayload, m); err != nil {
			return fmt.Errorf("case %s: unmarshalling json payload: %w", c.Name, err)
		}
		pb, err := d.tests.MarshalAppend(nil, m)
		if err != nil {
			return fmt.Errorf("case %s: marshaling payload into binary: %w", c.Name, err)
		}
		c.Request.Payload = conformance.ProtobufInput(pb)
	}
	return nil
}

// Source yields cases one by one from a case file.
type Source struct {
	r   *Reader
	dec *Decoder
	buf []byte
}

func NewSource(r io.Reader, dec *Decoder) *Source {
	return &Source{r: NewReader(r), dec: dec}
}

// Next returns io.EOF when no cases are left.
func (s *Source) Next() (*Case, error) {
	var err error
	s.buf, err = s.r.ReadNext(s.buf[:0])
	if err != nil {
		return nil, err
	}
	c := new(Case)
	if err = s.dec.Unmarshal(c, s.buf); err != nil {
		return nil, err
	}
	return c, nil
}

// ReadAll reads every case of r.
func ReadAll(r io.Reader, dec *Decoder) ([]*Case, error) {
	var (
		all []*Case
		src = NewSource(r, dec)
	)
	for i := 1; ; i++ {
		c, err := src.Next()
		if errors.Is(err, io.EOF) {
			return all, nil
		}
		if err != nil {
			return nil, fmt.Errorf("case #%d: %w", i, err)
		}
		all = append(all, c)
	}
}
