package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAssignsIncreasingSequences(t *testing.T) {
	rb := New(0, 0)
	for i, s := range []string{"chunk0", "chunk1", "chunk2", "chunk3", "chunk4"} {
		seq := rb.Write([]byte(s), false, 0, 0)
		assert.Equal(t, uint64(i+1), seq)
	}
	assert.Equal(t, uint64(1), rb.OldestSequence())
	assert.Equal(t, uint64(5), rb.NewestSequence())
}

func TestCreateWriteReplay(t *testing.T) {
	rb := New(0, 0)
	for _, s := range []string{"chunk0", "chunk1", "chunk2", "chunk3", "chunk4"} {
		rb.Write([]byte(s), false, 0, 0)
	}
	chunks := rb.ReadFrom(1)
	require.Len(t, chunks, 5)
	assert.Equal(t, uint64(1), chunks[0].SequenceNumber)
	assert.Equal(t, uint64(5), chunks[len(chunks)-1].SequenceNumber)
}

func TestEvictionByChunkCount(t *testing.T) {
	rb := New(0, 5)
	for i := 0; i < 10; i++ {
		rb.Write([]byte("x"), false, 0, 0)
	}
	stats := rb.Statistics()
	assert.Equal(t, 5, stats.ChunkCount)
	assert.Equal(t, uint64(6), rb.OldestSequence())
	assert.Equal(t, uint64(10), rb.NewestSequence())
	assert.Equal(t, uint64(5), stats.EvictedChunks)

	chunks := rb.ReadFrom(1)
	require.NotEmpty(t, chunks)
	assert.Greater(t, chunks[0].SequenceNumber, uint64(1))
	assert.Equal(t, uint64(6), chunks[0].SequenceNumber)
}

func TestEvictionByByteBound(t *testing.T) {
	rb := New(10, 0)
	rb.Write([]byte("12345"), false, 0, 0)
	rb.Write([]byte("67890"), false, 0, 0)
	rb.Write([]byte("abcde"), false, 0, 0)

	stats := rb.Statistics()
	assert.LessOrEqual(t, stats.TotalBytes, int64(10))
	assert.Equal(t, uint64(1), stats.EvictedChunks)
}

func TestGetLatestBytes(t *testing.T) {
	rb := New(0, 0)
	rb.Write([]byte("aaa"), false, 0, 0)
	rb.Write([]byte("bbb"), false, 0, 0)
	rb.Write([]byte("ccc"), false, 0, 0)

	assert.Equal(t, []byte("bbbccc"), rb.GetLatestBytes(6))
	assert.Equal(t, []byte(""), rb.GetLatestBytes(0))
}

func TestEmptyBufferReads(t *testing.T) {
	rb := New(0, 0)
	assert.Empty(t, rb.ReadFrom(1))
	assert.Empty(t, rb.GetLatestBytes(100))
	assert.Equal(t, uint64(0), rb.OldestSequence())
	assert.Equal(t, uint64(0), rb.NewestSequence())
}

func TestReadFromAheadOfNewestReturnsEmpty(t *testing.T) {
	rb := New(0, 0)
	rb.Write([]byte("a"), false, 0, 0)
	assert.Empty(t, rb.ReadFrom(5))
}
