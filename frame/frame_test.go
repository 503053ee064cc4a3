package frame

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecEncodeDecodeRoundTrip(t *testing.T) {
	c := &Codec{}
	f := Frame{
		Version:   1,
		SessionId: 42,
		FrameType: TerminalOutput,
		Payload:   []byte("hello world"),
	}
	b, err := c.Encode(f)
	require.NoError(t, err)
	assert.Len(t, b, HeaderSize+len(f.Payload))

	got, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestCodecDecodeIncompleteHeader(t *testing.T) {
	c := &Codec{}
	_, err := c.Decode([]byte{1, 2, 3})
	require.Error(t, err)
	assert.Equal(t, IncompleteFrame, GetErrorCode(err))
}

func TestCodecDecodeIncompletePayload(t *testing.T) {
	c := &Codec{}
	f := Frame{SessionId: 1, FrameType: TerminalInput, Payload: []byte("abcdef")}
	b, err := c.Encode(f)
	require.NoError(t, err)
	_, err = c.Decode(b[:len(b)-3])
	require.Error(t, err)
	assert.Equal(t, IncompleteFrame, GetErrorCode(err))
}

func TestCodecEncodePayloadTooLarge(t *testing.T) {
	c := &Codec{MaxMessageSize: 4}
	_, err := c.Encode(Frame{Payload: []byte("too big")})
	require.Error(t, err)
	assert.Equal(t, PayloadTooLarge, GetErrorCode(err))
}

func TestCodecReadWriteFrame(t *testing.T) {
	c := &Codec{}
	var buf bytes.Buffer
	want := Frame{SessionId: 7, FrameType: Heartbeat, Payload: []byte{0x01, 0x02}}
	require.NoError(t, c.WriteFrame(&buf, want))

	got, err := c.ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, want.SessionId, got.SessionId)
	assert.Equal(t, want.FrameType, got.FrameType)
	assert.Equal(t, want.Payload, got.Payload)
}

func TestCodecReadFrameEOF(t *testing.T) {
	c := &Codec{}
	_, err := c.ReadFrame(&bytes.Buffer{})
	assert.ErrorIs(t, err, io.EOF)
}

func TestRequireKnownType(t *testing.T) {
	assert.NoError(t, RequireKnownType(Frame{FrameType: TerminalOutput}))
	assert.Error(t, RequireKnownType(Frame{FrameType: Type(0xFF)}))
}

func TestTerminalOutputDataRoundTrip(t *testing.T) {
	m := TerminalOutputData{
		SessionId:       3,
		Data:            []byte("output chunk"),
		SequenceNumber:  99,
		Compressed:      true,
		CompressionType: CompressionLZ4,
		IsReplay:        true,
		TimestampMs:     123456,
	}
	got, err := UnmarshalTerminalOutputData(m.Marshal())
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestStateDeltaRoundTripWithNegativeScroll(t *testing.T) {
	m := StateDeltaMsg{
		SessionId:          5,
		BaseSequenceNumber: 10,
		NewSequenceNumber:  11,
		Updates: []StateUpdateMsg{
			{UpdateType: UpdateScroll, IntValue: -17},
			{UpdateType: UpdateCursorMove, Row: 2, Col: 3},
		},
	}
	got, err := UnmarshalStateDeltaMsg(m.Marshal())
	require.NoError(t, err)
	require.Len(t, got.Updates, 2)
	assert.Equal(t, int64(-17), got.Updates[0].IntValue)
	assert.Equal(t, m, got)
}

func TestStateDeltaRejectsInvalidUpdateType(t *testing.T) {
	raw := StateUpdateMsg{UpdateType: UpdateType(99)}.Marshal()
	bad := StateDeltaMsg{SessionId: 1}
	b := bad.Marshal()
	b = appendBytes(b, 4, raw)
	_, err := UnmarshalStateDeltaMsg(b)
	require.Error(t, err)
	assert.Equal(t, InvalidFrame, GetErrorCode(err))
}

func TestSessionAttachRequestRoundTrip(t *testing.T) {
	m := SessionAttachRequestMsg{
		SessionId:                 8,
		ClientId:                  "client-a",
		ReplayFromSequence:        100,
		HasReplayFromSequence:     true,
		LastKnownStateSequence:    50,
		HasLastKnownStateSequence: true,
		WindowSize:                65536,
	}
	got, err := UnmarshalSessionAttachRequestMsg(m.Marshal())
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestBuildAndParseRoundTrip(t *testing.T) {
	m := WindowUpdateMsg{SessionId: 9, WindowIncrement: 4096}
	f := BuildWindowUpdate(m)
	assert.Equal(t, WindowUpdate, f.FrameType)

	got, err := Parse(f, WindowUpdate, UnmarshalWindowUpdateMsg)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = Parse(f, Pause, UnmarshalPauseMsg)
	require.Error(t, err)
}

func TestUnknownFieldsAreSkipped(t *testing.T) {
	m := TerminalResize{SessionId: 1, Columns: 80, Rows: 24}
	b := m.Marshal()
	b = appendString(b, 99, "future field")
	got, err := UnmarshalTerminalResize(b)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}
