package frame

import (
	"encoding/binary"
	"io"
)

// HeaderSize is the fixed size, in bytes, of a Frame's wire header.
const HeaderSize = 10

// Magic bytes that MAY be sent once at connection start for protocol
// sniffing. Never part of a frame; callers that want to sniff do so before
// handing the stream to a Codec.
var Magic = [4]byte{0x54, 0x4D, 0x58, 0x50} // "TMXP"

const currentVersion uint8 = 1
const minSupportedVersion uint8 = 1

// Frame is one atomic wire element: a 10-byte header plus a payload.
// SessionId 0 is reserved for control frames.
type Frame struct {
	Version       uint8
	SessionId     uint32
	FrameType     Type
	Payload       []byte
}

// Codec encodes and decodes the fixed wire format described in the
// external interfaces section of the spec. maxMessageSize bounds
// payloadLength both on encode and decode; 0 means "use DefaultMaxMessageSize".
type Codec struct {
	MaxMessageSize uint32
}

// DefaultMaxMessageSize is used by a zero-value Codec.
const DefaultMaxMessageSize = 16 * 1024 * 1024

func (c *Codec) maxSize() uint32 {
	if c.MaxMessageSize == 0 {
		return DefaultMaxMessageSize
	}
	return c.MaxMessageSize
}

// Encode allocates a HeaderSize+len(payload) buffer, writes the header
// fields big-endian, and copies the payload in.
func (c *Codec) Encode(f Frame) ([]byte, error) {
	if len(f.Payload) > int(c.maxSize()) {
		return nil, newErr(PayloadTooLarge, nil)
	}
	version := f.Version
	if version == 0 {
		version = currentVersion
	}
	buf := make([]byte, HeaderSize+len(f.Payload))
	buf[0] = version
	binary.BigEndian.PutUint32(buf[1:5], f.SessionId)
	buf[5] = byte(f.FrameType)
	binary.BigEndian.PutUint32(buf[6:10], uint32(len(f.Payload)))
	copy(buf[HeaderSize:], f.Payload)
	return buf, nil
}

// Decode validates and parses a complete frame out of b. It fails with
// IncompleteFrame if b is shorter than the header or the declared payload,
// and PayloadTooLarge if the declared length exceeds the negotiated max.
func (c *Codec) Decode(b []byte) (Frame, error) {
	if len(b) < HeaderSize {
		return Frame{}, newErr(IncompleteFrame, nil)
	}
	version := b[0]
	if version < minSupportedVersion {
		return Frame{}, newErr(InvalidFrame, nil)
	}
	sessionId := binary.BigEndian.Uint32(b[1:5])
	ftype := Type(b[5])
	length := binary.BigEndian.Uint32(b[6:10])
	if length > c.maxSize() {
		return Frame{}, newErr(PayloadTooLarge, nil)
	}
	if uint32(len(b)-HeaderSize) < length {
		return Frame{}, newErr(IncompleteFrame, nil)
	}
	payload := make([]byte, length)
	copy(payload, b[HeaderSize:HeaderSize+int(length)])
	return Frame{
		Version:   version,
		SessionId: sessionId,
		FrameType: ftype,
		Payload:   payload,
	}, nil
}

// ReadFrame reads exactly one frame off r: HeaderSize header bytes, then
// exactly payloadLength payload bytes. An EOF while reading the payload
// (a "short" frame) is reported as IncompleteFrame rather than io.EOF, so
// callers can distinguish a clean stream close (EOF on the header read)
// from a truncated frame.
func (c *Codec) ReadFrame(r io.Reader) (Frame, error) {
	hdr := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, newErr(IncompleteFrame, err)
	}
	version := hdr[0]
	if version < minSupportedVersion {
		return Frame{}, newErr(InvalidFrame, nil)
	}
	sessionId := binary.BigEndian.Uint32(hdr[1:5])
	ftype := Type(hdr[5])
	length := binary.BigEndian.Uint32(hdr[6:10])
	if length > c.maxSize() {
		return Frame{}, newErr(PayloadTooLarge, nil)
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, newErr(IncompleteFrame, err)
		}
	}
	return Frame{
		Version:   version,
		SessionId: sessionId,
		FrameType: ftype,
		Payload:   payload,
	}, nil
}

// WriteFrame encodes f and writes it to w in a single Write call.
func (c *Codec) WriteFrame(w io.Writer, f Frame) error {
	b, err := c.Encode(f)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// RequireKnownType fails with UnknownFrameType if f.FrameType isn't part
// of the closed set in types.go.
func RequireKnownType(f Frame) error {
	if !f.FrameType.known() {
		return newErr(UnknownFrameType, nil)
	}
	return nil
}
