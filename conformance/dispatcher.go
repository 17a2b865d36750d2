// Package conformance classifies conformance requests and verifies their
// payloads against the codec under test.
package conformance

import (
	"go.uber.org/zap"

	"github.com/ozontech/conformer/schema"
)

const (
	msgJSONOutput    = "JSON output is not supported"
	msgJSONInput     = "JSON input is not supported"
	msgUnknownFormat = "unrecognized requested output format"
	msgNoPayload     = "no payload"
)

type Dispatcher struct {
	requests    *RequestCodec
	verifier    *Verifier
	messageType string
	log         *zap.Logger
}

func NewDispatcher(requests *RequestCodec, verifier *Verifier, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		requests:    requests,
		verifier:    verifier,
		messageType: string(verifier.codec.Descriptor().FullName()),
		log:         log,
	}
}

// Handle decodes one raw request and produces its result. It never fails:
// every problem is reported through the result.
func (d *Dispatcher) Handle(raw []byte) Result {
	req, err := d.requests.Unmarshal(raw)
	if err != nil {
		return ParseError(err.Error())
	}
	return d.Dispatch(req)
}

// Dispatch applies output format and payload policy to a decoded request.
func (d *Dispatcher) Dispatch(req *Request) Result {
	switch req.OutputFormat {
	case schema.WireFormatJSON:
		return Skipped(msgJSONOutput)
	case schema.WireFormatProtobuf:
	default:
		// UNSPECIFIED and every format this harness does not know about.
		return ParseError(msgUnknownFormat)
	}

	// Only the proto3 TestAllTypes schema is loaded. Decoding another type's
	// payload with it would report failures that say nothing about the codec.
	if req.MessageType != "" && req.MessageType != d.messageType {
		return Skipped("unsupported message type: " + req.MessageType)
	}

	switch p := req.Payload.(type) {
	case nil:
		return ParseError(msgNoPayload)
	case JSONInput:
		return Skipped(msgJSONInput)
	case ProtobufInput:
		return d.verifier.Verify(p)
	default:
		d.log.DPanic("unknown payload", zap.Any("payload", p))
		return ParseError(msgNoPayload)
	}
}
