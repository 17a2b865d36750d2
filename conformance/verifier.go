package conformance

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ozontech/conformer/codec"
)

// Verifier checks that the codec is a faithful identity transform over a
// payload: decode, encode, decode again and compare.
type Verifier struct {
	codec codec.Codec
	log   *zap.Logger
}

func NewVerifier(c codec.Codec, log *zap.Logger) *Verifier {
	return &Verifier{codec: c, log: log}
}

func (v *Verifier) Verify(buf []byte) Result {
	name := v.codec.Descriptor().Name()

	original, err := v.codec.Unmarshal(buf)
	if err != nil {
		return ParseError(fmt.Sprintf("failed to parse %s: %v", name, err))
	}
	if ce := v.log.Check(zap.DebugLevel, "request"); ce != nil {
		ce.Write(zap.String("message", v.codec.Format(original)))
	}

	encoded, err := v.codec.MarshalAppend(nil, original)
	if err != nil {
		return RuntimeError(fmt.Sprintf("failed to serialize %s: %v", name, err))
	}

	if size := v.codec.Size(original); size != len(encoded) {
		return RuntimeError(fmt.Sprintf(
			"encoded length does not match actual; encoded_len: %d, buf len: %d",
			size, len(encoded),
		))
	}

	roundtrip, err := v.codec.Unmarshal(encoded)
	if err != nil {
		return ParseError(fmt.Sprintf("failed to parse roundtrip %s: %v", name, err))
	}

	if !v.codec.Equal(original, roundtrip) {
		return RuntimeError(fmt.Sprintf(
			"roundtrip value does not match original;\n\t original: %s\n\troundtrip: %s",
			v.codec.Format(original), v.codec.Format(roundtrip),
		))
	}

	return ProtobufPayload(encoded)
}
