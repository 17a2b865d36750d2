// Package phout writes one tab separated line per exchanged case.
package phout

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"syscall"
	"time"

	"github.com/ozontech/conformer/conformance"
	"github.com/ozontech/conformer/report"
	"github.com/ozontech/conformer/utils/pool"
)

var now = time.Now

type Reporter struct {
	w    *bufio.Writer
	ch   chan *caseState
	pool *pool.Pool[*caseState]
}

func New(w io.Writer) *Reporter {
	r := &Reporter{
		w:  bufio.NewWriter(w),
		ch: make(chan *caseState, 256),
	}
	r.pool = pool.New(256, func() *caseState {
		return &caseState{
			reportLine: make([]byte, 0, 128),
			reporter:   r,
		}
	})
	return r
}

// Run writes lines until Close. After a write error the remaining states are
// still drained, so End never blocks, and the first error is returned.
func (r *Reporter) Run() error {
	var err error
	for s := range r.ch {
		if err == nil {
			if _, werr := r.w.Write(s.result()); werr != nil {
				err = fmt.Errorf("write: %w", werr)
			}
		}
		r.pool.Put(s)
	}
	if err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *Reporter) Close() error {
	close(r.ch)
	return nil
}

func (r *Reporter) Acquire(name string) report.CaseState {
	s := r.pool.Get()
	s.reset(name)
	return s
}

func (r *Reporter) accept(s *caseState) {
	r.ch <- s
}

type caseState struct {
	reportLine []byte
	reporter   *Reporter

	name      string
	reqSize   int
	resSize   int
	kind      conformance.Kind
	hasResult bool
	failed    bool
	ioErr     error
	startTime time.Time
	endTime   time.Time
}

func (s *caseState) reset(name string) {
	s.name = name
	s.startTime = now()

	s.reqSize = 0
	s.resSize = 0
	s.hasResult = false
	s.failed = false
	s.ioErr = nil
}

func (s *caseState) SetSize(req, res int) {
	s.reqSize = req
	s.resSize = res
}

func (s *caseState) SetResult(k conformance.Kind) {
	s.kind = k
	s.hasResult = true
}

func (s *caseState) Fail() { s.failed = true }

func (s *caseState) IoError(err error) { s.ioErr = err }

func (s *caseState) End() {
	s.endTime = now()
	s.reporter.accept(s)
}

const tabChar = '\t'

func (s *caseState) result() []byte {
	s.reportLine = s.reportLine[:0]
	s.reportLine = strconv.AppendInt(s.reportLine, s.startTime.Unix(), 10)
	s.reportLine = append(s.reportLine, '.')
	s.reportLine = strconv.AppendInt(s.reportLine, int64(s.startTime.Nanosecond()/1e6), 10)
	s.reportLine = append(s.reportLine, tabChar)
	s.reportLine = append(s.reportLine, s.name...)
	s.reportLine = append(s.reportLine, tabChar)

	rtt := s.endTime.Sub(s.startTime).Microseconds()
	s.reportLine = strconv.AppendInt(s.reportLine, rtt, 10)
	s.reportLine = append(s.reportLine, tabChar)

	s.reportLine = strconv.AppendInt(s.reportLine, int64(s.reqSize), 10)
	s.reportLine = append(s.reportLine, tabChar)
	s.reportLine = strconv.AppendInt(s.reportLine, int64(s.resSize), 10)
	s.reportLine = append(s.reportLine, tabChar)

	var errNo syscall.Errno
	if s.ioErr != nil {
		if !errors.As(s.ioErr, &errNo) {
			errNo = 999
		}
		s.reportLine = strconv.AppendInt(s.reportLine, int64(errNo), 10)
	} else {
		s.reportLine = append(s.reportLine, '0')
	}
	s.reportLine = append(s.reportLine, tabChar)

	switch {
	case !s.hasResult:
		s.reportLine = append(s.reportLine, "no_result"...)
	case s.failed:
		s.reportLine = append(s.reportLine, "fail_"...)
		s.reportLine = append(s.reportLine, s.kind.String()...)
	default:
		s.reportLine = append(s.reportLine, s.kind.String()...)
	}
	s.reportLine = append(s.reportLine, '\n')
	return s.reportLine
}
