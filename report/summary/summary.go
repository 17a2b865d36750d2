// Package summary counts conformance results and prints a one-line report.
package summary

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ozontech/conformer/conformance"
)

type Reporter struct {
	start time.Time

	kinds  [4]atomic.Uint64
	failed atomic.Uint64
	in     atomic.Uint64
	out    atomic.Uint64
}

func New() *Reporter {
	return &Reporter{start: time.Now()}
}

// Accept records one result together with the request and response sizes.
func (r *Reporter) Accept(res conformance.Result, inSize, outSize int) {
	r.kinds[res.Kind()].Add(1)
	r.in.Add(uint64(inSize))
	r.out.Add(uint64(outSize))
}

// Fail records a case whose result did not match expectations.
func (r *Reporter) Fail() { r.failed.Add(1) }

func (r *Reporter) Count(k conformance.Kind) uint64 { return r.kinds[k].Load() }

func (r *Reporter) Failed() uint64 { return r.failed.Load() }

func (r *Reporter) Total() uint64 {
	var total uint64
	for i := range r.kinds {
		total += r.kinds[i].Load()
	}
	return total
}

// Write prints the totals to w.
func (r *Reporter) Write(w io.Writer) error {
	d := time.Since(r.start)
	_, err := fmt.Fprintf(
		w,
		"total=%d payload=%d parse_error=%d runtime_error=%d skipped=%d failed=%d in=%s out=%s time=%s\n",
		r.Total(),
		r.Count(conformance.KindProtobufPayload),
		r.Count(conformance.KindParseError),
		r.Count(conformance.KindRuntimeError),
		r.Count(conformance.KindSkipped),
		r.Failed(),
		humanize.Bytes(r.in.Load()), humanize.Bytes(r.out.Load()),
		d.Round(time.Millisecond),
	)
	return err
}
