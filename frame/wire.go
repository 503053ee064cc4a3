package frame

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// The payload schema is hand-written tagged binary built directly on
// protowire's low-level primitives rather than generated from a .proto
// file. Field numbers below are fixed per message type and documented next
// to each struct in messages.go; once assigned they must never be reused
// for a different field, matching the wire format's own stability rule.

func appendUint32(b []byte, num protowire.Number, v uint32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendUint64(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// appendMessage always emits a length-delimited field, even when v is
// empty. Use this (not appendBytes) for repeated embedded messages like
// StateDeltaMsg's updates: an all-default submessage (e.g. CursorMove to
// row 0, col 0) legitimately marshals to zero bytes, and appendBytes'
// empty-means-absent rule would silently drop that repeated entry instead
// of just omitting an optional scalar.
func appendMessage(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	return appendBytes(b, num, []byte(v))
}

// appendZigZag encodes a possibly-negative int64 (e.g. Scroll(n)'s signed
// line count) the way protobuf's sint types do, so small negative numbers
// stay small on the wire instead of varint-encoding as a huge unsigned
// value.
func appendZigZag(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	zz := uint64((v << 1) ^ (v >> 63))
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, zz)
}

func zigzagDecode(zz uint64) int64 {
	return int64(zz>>1) ^ -(int64(zz & 1))
}

// fieldVisitor is called once per tagged field found in b, in wire order.
// It returns how many bytes of b the field's value occupies; visitors skip
// unknown field numbers themselves (via skipField), decodeFields does not.
type fieldVisitor func(num protowire.Number, typ protowire.Type, b []byte) (n int, err error)

// decodeFields walks b, a sequence of protowire-tagged fields, invoking
// visit for each one. It returns InvalidFrame if the buffer is malformed.
func decodeFields(b []byte, visit fieldVisitor) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return newErr(InvalidFrame, fmt.Errorf("bad field tag"))
		}
		b = b[n:]
		consumed, err := visit(num, typ, b)
		if err != nil {
			return err
		}
		if consumed < 0 || consumed > len(b) {
			return newErr(InvalidFrame, fmt.Errorf("bad field length"))
		}
		b = b[consumed:]
	}
	return nil
}

func consumeVarint(b []byte) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, newErr(InvalidFrame, fmt.Errorf("bad varint"))
	}
	return v, n, nil
}

func consumeBytes(b []byte) ([]byte, int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, newErr(InvalidFrame, fmt.Errorf("bad length-delimited field"))
	}
	// copy: v aliases b, which may alias a caller-owned buffer
	out := make([]byte, len(v))
	copy(out, v)
	return out, n, nil
}

func skipField(typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(0, typ, b)
	if n < 0 {
		return 0, newErr(InvalidFrame, fmt.Errorf("bad field value"))
	}
	return n, nil
}
