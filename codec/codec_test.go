package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/ozontech/conformer/codec"
	"github.com/ozontech/conformer/schema"
)

func makeMessage(c *codec.Dynamic) *dynamicpb.Message {
	m := c.New()
	fields := c.Descriptor().Fields()
	m.Set(fields.ByName("optional_int32"), protoreflect.ValueOfInt32(-7))
	m.Set(fields.ByName("optional_string"), protoreflect.ValueOfString("hello"))

	list := m.Mutable(fields.ByName("repeated_int64")).List()
	list.Append(protoreflect.ValueOfInt64(3))
	list.Append(protoreflect.ValueOfInt64(1))

	mp := m.Mutable(fields.ByName("map_string_string")).Map()
	mp.Set(protoreflect.ValueOfString("b").MapKey(), protoreflect.ValueOfString("2"))
	mp.Set(protoreflect.ValueOfString("a").MapKey(), protoreflect.ValueOfString("1"))
	return m
}

func TestDynamicRoundTrip(t *testing.T) {
	t.Parallel()
	a := assert.New(t)
	c := codec.NewDynamic(schema.MustDefault().TestAllTypes)

	m := makeMessage(c)
	b, err := c.MarshalAppend(nil, m)
	require.NoError(t, err)
	a.Equal(c.Size(m), len(b))

	got, err := c.Unmarshal(b)
	require.NoError(t, err)
	a.True(c.Equal(m, got))
	a.Regexp(`optional_string:\s*"hello"`, c.Format(got))
}

func TestDynamicDeterministic(t *testing.T) {
	t.Parallel()
	c := codec.NewDynamic(schema.MustDefault().TestAllTypes)

	b1, err := c.MarshalAppend(nil, makeMessage(c))
	require.NoError(t, err)
	b2, err := c.MarshalAppend(nil, makeMessage(c))
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestDynamicEqual(t *testing.T) {
	t.Parallel()
	a := assert.New(t)
	c := codec.NewDynamic(schema.MustDefault().TestAllTypes)
	fields := c.Descriptor().Fields()

	reordered := makeMessage(c)
	list := reordered.Mutable(fields.ByName("repeated_int64")).List()
	first, second := list.Get(0), list.Get(1)
	list.Set(0, second)
	list.Set(1, first)
	a.False(c.Equal(makeMessage(c), reordered), "repeated fields are order sensitive")

	m := c.New()
	mp := m.Mutable(fields.ByName("map_string_string")).Map()
	mp.Set(protoreflect.ValueOfString("a").MapKey(), protoreflect.ValueOfString("1"))
	mp.Set(protoreflect.ValueOfString("b").MapKey(), protoreflect.ValueOfString("2"))
	m.Set(fields.ByName("optional_int32"), protoreflect.ValueOfInt32(-7))
	m.Set(fields.ByName("optional_string"), protoreflect.ValueOfString("hello"))
	l := m.Mutable(fields.ByName("repeated_int64")).List()
	l.Append(protoreflect.ValueOfInt64(3))
	l.Append(protoreflect.ValueOfInt64(1))
	a.True(c.Equal(makeMessage(c), m), "maps are order independent")
}

func TestDynamicUnknownFields(t *testing.T) {
	t.Parallel()
	c := codec.NewDynamic(schema.MustDefault().TestAllTypes)

	var b []byte
	b = protowire.AppendTag(b, 9999, protowire.VarintType)
	b = protowire.AppendVarint(b, 42)

	m, err := c.Unmarshal(b)
	require.NoError(t, err)
	out, err := c.MarshalAppend(nil, m)
	require.NoError(t, err)
	assert.Equal(t, b, out)
}

func TestDynamicMalformed(t *testing.T) {
	t.Parallel()
	c := codec.NewDynamic(schema.MustDefault().TestAllTypes)

	// field 1, varint, no value bytes
	_, err := c.Unmarshal([]byte{0x08})
	assert.Error(t, err)

	// optional_string with an overlong length
	_, err = c.Unmarshal([]byte{0x72, 0x10, 'a'})
	assert.Error(t, err)
}
