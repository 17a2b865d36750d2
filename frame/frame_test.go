package frame

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type test struct {
	name  string
	bytes []byte
	data  [][]byte
}

func makeTests() []test {
	return []test{
		{
			"simple",
			[]byte("\x05\x00\x00\x00hello\x03\x00\x00\x00foo"),
			[][]byte{[]byte("hello"), []byte("foo")},
		},
		{
			"empty frame",
			[]byte("\x00\x00\x00\x00\x01\x00\x00\x00x"),
			[][]byte{{}, []byte("x")},
		},
		{
			"no frames",
			nil,
			nil,
		},
		{
			"large",
			append([]byte{0x00, 0x01, 0x00, 0x00}, bytes.Repeat([]byte{0xAB}, 256)...),
			[][]byte{bytes.Repeat([]byte{0xAB}, 256)},
		},
	}
}

func TestReader(t *testing.T) {
	t.Parallel()
	for _, tc := range makeTests() {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			a := assert.New(t)

			r := NewReader(bytes.NewReader(tc.bytes))
			var (
				i   int
				buf []byte
			)
			for {
				d, err := r.ReadNext(buf)
				if errors.Is(err, ErrStreamClosed) {
					break
				}
				require.NoError(t, err)
				require.Less(t, i, len(tc.data))
				a.Equal(tc.data[i], d, "frame %d", i)
				buf = d
				i++
			}
			a.Equal(len(tc.data), i)
		})
	}
}

func TestWriter(t *testing.T) {
	t.Parallel()
	for _, tc := range makeTests() {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			bb := new(bytes.Buffer)
			w := NewWriter(bb)
			for _, d := range tc.data {
				require.NoError(t, w.WriteNext(d))
			}
			assert.Equal(t, tc.bytes, bb.Bytes())
		})
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	frames := [][]byte{
		{},
		{0},
		[]byte("\x00\x00\x00\x00"),
		bytes.Repeat([]byte("abc"), 70_000),
	}

	bb := new(bytes.Buffer)
	w := NewWriter(bb)
	for _, f := range frames {
		require.NoError(t, w.WriteNext(f))
	}

	r := NewReader(bb)
	for i, f := range frames {
		got, err := r.ReadNext(nil)
		require.NoError(t, err)
		assert.Equal(t, f, got, "frame %d", i)
	}
	_, err := r.ReadNext(nil)
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderEmptyFrame(t *testing.T) {
	t.Parallel()
	r := NewReader(bytes.NewReader([]byte("\x00\x00\x00\x00")))

	got, err := r.ReadNext(nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReaderErrors(t *testing.T) {
	t.Parallel()
	errBrand := errors.New("brand error")

	for _, tc := range []struct {
		name string
		r    io.Reader
		err  error
	}{
		{"partial header", bytes.NewReader([]byte{0x01, 0x00}), ErrStreamClosed},
		{"truncated body", bytes.NewReader([]byte("\x05\x00\x00\x00hel")), ErrTruncated},
		{"header io error", iotestErrReader{errBrand}, errBrand},
		{"body io error", io.MultiReader(bytes.NewReader([]byte("\x05\x00\x00\x00")), iotestErrReader{errBrand}), errBrand},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewReader(tc.r).ReadNext(nil)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestReaderReusesBuffer(t *testing.T) {
	t.Parallel()
	buf := make([]byte, 0, 16)
	got, err := NewReader(bytes.NewReader([]byte("\x03\x00\x00\x00abc"))).ReadNext(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
	assert.Equal(t, &buf[:1][0], &got[0])
}

type countingFlusher struct {
	*bufio.Writer
	flushes int
}

func (f *countingFlusher) Flush() error {
	f.flushes++
	return f.Writer.Flush()
}

func TestWriterFlushes(t *testing.T) {
	t.Parallel()
	bb := new(bytes.Buffer)
	fw := &countingFlusher{Writer: bufio.NewWriter(bb)}
	w := NewWriter(fw)

	require.NoError(t, w.WriteNext([]byte("ping")))
	assert.Equal(t, 1, fw.flushes)
	assert.Equal(t, []byte("\x04\x00\x00\x00ping"), bb.Bytes())
}

type iotestErrReader struct{ err error }

func (r iotestErrReader) Read([]byte) (int, error) { return 0, r.err }
