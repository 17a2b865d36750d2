// Package harness runs the conformance request/response loop over a pair of
// byte streams.
package harness

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ozontech/conformer/codec"
	"github.com/ozontech/conformer/conformance"
	"github.com/ozontech/conformer/frame"
	"github.com/ozontech/conformer/report/summary"
	"github.com/ozontech/conformer/schema"
)

type Harness struct {
	r          *frame.Reader
	w          *frame.Writer
	dispatcher *conformance.Dispatcher
	responses  *conformance.ResponseCodec
	reporter   *summary.Reporter
	tests      codec.Codec
	log        *zap.Logger

	readBuf  []byte
	writeBuf []byte
}

type Option func(*Harness)

// WithCodec replaces the codec used for test messages.
func WithCodec(c codec.Codec) Option {
	return func(h *Harness) {
		h.tests = c
	}
}

func WithReporter(r *summary.Reporter) Option {
	return func(h *Harness) {
		h.reporter = r
	}
}

func New(s *schema.Schema, in io.Reader, out io.Writer, log *zap.Logger, opts ...Option) *Harness {
	h := &Harness{
		r:         frame.NewReader(in),
		w:         frame.NewWriter(out),
		responses: conformance.NewResponseCodec(codec.NewDynamic(s.Response)),
		reporter:  summary.New(),
		tests:     codec.NewDynamic(s.TestAllTypes),
		log:       log,
	}
	for _, o := range opts {
		if o != nil {
			o(h)
		}
	}
	h.dispatcher = conformance.NewDispatcher(
		conformance.NewRequestCodec(codec.NewDynamic(s.Request)),
		conformance.NewVerifier(h.tests, log),
		log,
	)
	return h
}

func (h *Harness) Reporter() *summary.Reporter { return h.reporter }

// Run serves requests until the input stream is closed. Any other error is
// fatal: the framing can't be recovered.
func (h *Harness) Run() error {
	for i := 1; ; i++ {
		err := h.Step()
		if errors.Is(err, frame.ErrStreamClosed) {
			h.log.Debug("input closed", zap.Int("requests", i-1))
			return nil
		}
		if err != nil {
			return fmt.Errorf("request #%d: %w", i, err)
		}
	}
}

// Step serves exactly one request.
func (h *Harness) Step() error {
	var err error
	h.readBuf, err = h.r.ReadNext(h.readBuf[:0])
	if err != nil {
		return err
	}

	result := h.dispatcher.Handle(h.readBuf)
	h.log.Debug("result", zap.Stringer("kind", result.Kind()), zap.Int("size", len(h.readBuf)))

	h.writeBuf, err = h.responses.MarshalAppend(h.writeBuf[:0], result)
	if err != nil {
		return err
	}
	if err = h.w.WriteNext(h.writeBuf); err != nil {
		return err
	}

	h.reporter.Accept(result, len(h.readBuf), len(h.writeBuf))
	return nil
}
