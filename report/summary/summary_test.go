package summary

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozontech/conformer/conformance"
)

func TestReporter(t *testing.T) {
	t.Parallel()
	a := assert.New(t)
	r := New()

	r.Accept(conformance.ProtobufPayload{1}, 1000, 500)
	r.Accept(conformance.ProtobufPayload{2}, 1000, 500)
	r.Accept(conformance.ParseError("x"), 10, 3)
	r.Accept(conformance.Skipped("y"), 10, 3)
	r.Fail()

	a.Equal(uint64(4), r.Total())
	a.Equal(uint64(2), r.Count(conformance.KindProtobufPayload))
	a.Equal(uint64(0), r.Count(conformance.KindRuntimeError))
	a.Equal(uint64(1), r.Failed())

	bb := new(bytes.Buffer)
	require.NoError(t, r.Write(bb))
	out := bb.String()
	a.Contains(out, "total=4 payload=2 parse_error=1 runtime_error=0 skipped=1 failed=1")
	a.Contains(out, "in=2.0 kB out=1.0 kB")
}
