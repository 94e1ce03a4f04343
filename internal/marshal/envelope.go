package marshal

import (
	"bytes"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Codec identifies how an envelope payload was produced.
type Codec byte

// Known codecs.
const (
	CodecCustom Codec = 0x01
	CodecProto  Codec = 0x02
)

func (c Codec) String() string {
	switch c {
	case CodecCustom:
		return "custom"
	case CodecProto:
		return "protobuf"
	}
	return fmt.Sprintf("codec(0x%02x)", byte(c))
}

// Envelope layout: magic, version, codec, payload.
const (
	envelopeVersion = 1
	headerLen       = 5
)

var envelopeMagic = []byte("ESB")

// Envelope errors.
var (
	ErrNotEnvelope     = errors.New("blob is not an embedsql envelope")
	ErrEnvelopeVersion = errors.New("unsupported envelope version")
	ErrCodecMismatch   = errors.New("envelope codec mismatch")
)

// Encode wraps payload in a version 1 envelope.
func Encode(codec Codec, payload []byte) []byte {
	out := make([]byte, 0, headerLen+len(payload))
	out = append(out, envelopeMagic...)
	out = append(out, envelopeVersion, byte(codec))
	return append(out, payload...)
}

// IsEnvelope reports whether b starts with an envelope header.
func IsEnvelope(b []byte) bool {
	return len(b) >= headerLen && bytes.Equal(b[:len(envelopeMagic)], envelopeMagic)
}

// DecodeBlob splits an envelope into its codec and payload. The payload
// aliases b.
func DecodeBlob(b []byte) (Codec, []byte, error) {
	if !IsEnvelope(b) {
		return 0, nil, ErrNotEnvelope
	}
	if v := b[len(envelopeMagic)]; v != envelopeVersion {
		return 0, nil, fmt.Errorf("%w: %d", ErrEnvelopeVersion, v)
	}
	return Codec(b[len(envelopeMagic)+1]), b[headerLen:], nil
}

// ProtoBlob opts a protobuf message into blob storage using deterministic
// wire encoding.
func ProtoBlob(m proto.Message) BlobMarshaler {
	return protoBlob{m: m}
}

type protoBlob struct {
	m proto.Message
}

func (p protoBlob) MarshalSQLBlob() ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(p.m)
}

func (protoBlob) blobCodec() Codec { return CodecProto }

// DecodeProto unmarshals a protobuf envelope into m.
func DecodeProto(b []byte, m proto.Message) error {
	codec, payload, err := DecodeBlob(b)
	if err != nil {
		return err
	}
	if codec != CodecProto {
		return fmt.Errorf("%w: got %s", ErrCodecMismatch, codec)
	}
	return proto.Unmarshal(payload, m)
}
