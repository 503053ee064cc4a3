// Package ringbuffer implements a bounded, sequence-numbered replay log for
// one session's terminal output. The eviction discipline mirrors
// nishisan-dev-n-backup's RingBuffer (circular storage, absolute offsets
// that never reset, oldest-data-first eviction), generalized from a single
// flat byte ring to a deque of sequence-tagged chunks so replay can resume
// at an exact sequence number instead of a raw byte offset.
package ringbuffer

import (
	"sync"
)

// Chunk is one stored unit of terminal output.
type Chunk struct {
	SequenceNumber  uint64
	Data            []byte
	Compressed      bool
	CompressionType uint8
	TimestampMs     uint64
}

// Statistics is a point-in-time snapshot of buffer occupancy and lifetime
// eviction counters.
type Statistics struct {
	ChunkCount     int
	TotalBytes     int64
	OldestSequence uint64
	NewestSequence uint64
	EvictedChunks  uint64
	EvictedBytes   uint64
}

// OutputRingBuffer is a bounded FIFO of Chunks for a single session. All
// operations are safe for concurrent use; serialization per session (one
// buffer per session, called only from that session's goroutines) keeps
// lock contention local rather than global.
type OutputRingBuffer struct {
	mu sync.Mutex

	maxBytes  int64
	maxChunks int

	chunks     []Chunk
	totalBytes int64

	oldestSeq uint64
	newestSeq uint64

	evictedChunks uint64
	evictedBytes  uint64
}

// New creates a buffer bounded by maxBytes total payload bytes and maxChunks
// stored chunks, whichever is reached first.
func New(maxBytes int64, maxChunks int) *OutputRingBuffer {
	return &OutputRingBuffer{
		maxBytes:  maxBytes,
		maxChunks: maxChunks,
	}
}

// Write appends data as a new chunk, assigning it the next sequence number
// (1 if the buffer has never held a chunk), then evicts the oldest chunks
// until both bounds hold. Eviction never blocks a writer: it is a plain
// slice trim under the same lock, never a wait.
func (rb *OutputRingBuffer) Write(data []byte, compressed bool, compressionType uint8, timestampMs uint64) uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	seq := rb.newestSeq + 1
	owned := make([]byte, len(data))
	copy(owned, data)
	rb.chunks = append(rb.chunks, Chunk{
		SequenceNumber:  seq,
		Data:            owned,
		Compressed:      compressed,
		CompressionType: compressionType,
		TimestampMs:     timestampMs,
	})
	rb.totalBytes += int64(len(owned))
	rb.newestSeq = seq
	if rb.oldestSeq == 0 {
		rb.oldestSeq = seq
	}

	rb.evict()
	return seq
}

// evict must be called with mu held.
func (rb *OutputRingBuffer) evict() {
	for len(rb.chunks) > 0 && (rb.overByBytes() || rb.overByCount()) {
		victim := rb.chunks[0]
		rb.chunks = rb.chunks[1:]
		rb.totalBytes -= int64(len(victim.Data))
		rb.evictedChunks++
		rb.evictedBytes += uint64(len(victim.Data))
		if len(rb.chunks) > 0 {
			rb.oldestSeq = rb.chunks[0].SequenceNumber
		} else {
			rb.oldestSeq = rb.newestSeq + 1
		}
	}
}

func (rb *OutputRingBuffer) overByBytes() bool {
	return rb.maxBytes > 0 && rb.totalBytes > rb.maxBytes
}

func (rb *OutputRingBuffer) overByCount() bool {
	return rb.maxChunks > 0 && len(rb.chunks) > rb.maxChunks
}

// ReadFrom returns chunks with SequenceNumber >= fromSequence, in order. If
// fromSequence is below the oldest retained sequence, the result starts at
// the oldest chunk instead; callers detect the gap by comparing the first
// returned sequence against fromSequence.
func (rb *OutputRingBuffer) ReadFrom(fromSequence uint64) []Chunk {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if len(rb.chunks) == 0 {
		return nil
	}
	start := 0
	for start < len(rb.chunks) && rb.chunks[start].SequenceNumber < fromSequence {
		start++
	}
	out := make([]Chunk, len(rb.chunks)-start)
	copy(out, rb.chunks[start:])
	return out
}

// GetLatestBytes concatenates the most recent chunks' payloads, most recent
// last, stopping once adding another chunk would exceed maxBytes.
func (rb *OutputRingBuffer) GetLatestBytes(maxBytes int) []byte {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	var selected []Chunk
	total := 0
	for i := len(rb.chunks) - 1; i >= 0; i-- {
		c := rb.chunks[i]
		if total+len(c.Data) > maxBytes {
			break
		}
		selected = append(selected, c)
		total += len(c.Data)
	}
	out := make([]byte, 0, total)
	for i := len(selected) - 1; i >= 0; i-- {
		out = append(out, selected[i].Data...)
	}
	return out
}

// OldestSequence returns the sequence number of the oldest retained chunk,
// or 0 if no chunk is currently retained.
func (rb *OutputRingBuffer) OldestSequence() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if len(rb.chunks) == 0 {
		return 0
	}
	return rb.oldestSeq
}

// NewestSequence returns the sequence number of the most recently written
// chunk, or 0 if the buffer has never held data.
func (rb *OutputRingBuffer) NewestSequence() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.newestSeq
}

// Statistics returns a point-in-time snapshot of occupancy and lifetime
// eviction counters.
func (rb *OutputRingBuffer) Statistics() Statistics {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return Statistics{
		ChunkCount:     len(rb.chunks),
		TotalBytes:     rb.totalBytes,
		OldestSequence: rb.oldestSeq,
		NewestSequence: rb.newestSeq,
		EvictedChunks:  rb.evictedChunks,
		EvictedBytes:   rb.evictedBytes,
	}
}
