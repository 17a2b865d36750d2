package phout

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ozontech/conformer/conformance"
)

func TestPhout(t *testing.T) {
	a := assert.New(t)

	b := new(bytes.Buffer)
	r := New(b)
	errChan := make(chan error)
	go func() {
		errChan <- r.Run()
	}()

	var expected string
	line := func(startTime, endTime time.Time, rest string) string {
		return fmt.Sprintf(
			"%d.%d\t%s\n",
			startTime.UnixMilli()/1e3, startTime.UnixMilli()%1e3,
			fmt.Sprintf(rest, endTime.Sub(startTime).Microseconds()),
		)
	}

	{
		startTime := time.Now()
		now = func() time.Time { return startTime }

		state := r.Acquire("valid")
		state.SetSize(111, 40)
		state.SetResult(conformance.KindProtobufPayload)

		endTime := startTime.Add(1500 * time.Microsecond)
		now = func() time.Time { return endTime }
		state.End()

		expected += line(startTime, endTime, "valid\t%d\t111\t40\t0\tprotobuf_payload")
	}

	{
		startTime := time.Now()
		now = func() time.Time { return startTime }

		state := r.Acquire("wrong")
		state.SetSize(5, 7)
		state.SetResult(conformance.KindRuntimeError)
		state.Fail()

		endTime := startTime.Add(time.Millisecond)
		now = func() time.Time { return endTime }
		state.End()

		expected += line(startTime, endTime, "wrong\t%d\t5\t7\t0\tfail_runtime_error")
	}

	{
		startTime := time.Now()
		now = func() time.Time { return startTime }

		state := r.Acquire("pipe")
		state.IoError(fmt.Errorf("write: %w", syscall.EPIPE))

		endTime := startTime.Add(time.Millisecond)
		now = func() time.Time { return endTime }
		state.End()

		expected += line(startTime, endTime, fmt.Sprintf("pipe\t%%d\t0\t0\t%d\tno_result", int(syscall.EPIPE)))
	}

	{
		startTime := time.Now()
		now = func() time.Time { return startTime }

		state := r.Acquire("")
		state.IoError(errors.New("unknown error"))

		endTime := startTime.Add(time.Millisecond)
		now = func() time.Time { return endTime }
		state.End()

		expected += line(startTime, endTime, "\t%d\t0\t0\t999\tno_result")
	}

	a.NoError(r.Close())
	a.NoError(<-errChan)

	a.Equal(expected, b.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestPhoutWriteErrorKeepsDraining(t *testing.T) {
	now = time.Now
	r := New(failingWriter{})
	errChan := make(chan error)
	go func() {
		errChan <- r.Run()
	}()

	// far more lines than the channel holds and the buffer takes
	for i := 0; i < 2000; i++ {
		state := r.Acquire("case")
		state.SetSize(10, 20)
		state.SetResult(conformance.KindProtobufPayload)
		state.End()
	}

	assert.NoError(t, r.Close())
	assert.ErrorIs(t, <-errChan, io.ErrClosedPipe)
}
