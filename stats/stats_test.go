package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersAccumulate(t *testing.T) {
	s := &StreamingStatistics{}
	s.RecordSessionCreated()
	s.RecordSessionCreated()
	s.RecordClientRegistered()
	s.RecordChunkProcessed(100, 40)
	s.RecordReplay(5, true)
	s.RecordFlowControlViolation()

	got := s.Snapshot()
	assert.Equal(t, uint64(2), got.SessionsCreated)
	assert.Equal(t, uint64(1), got.ClientsRegistered)
	assert.Equal(t, uint64(1), got.ChunksProcessed)
	assert.Equal(t, uint64(100), got.BytesProcessed)
	assert.Equal(t, uint64(40), got.BytesCompressedOut)
	assert.Equal(t, uint64(1), got.ReplaysServed)
	assert.Equal(t, uint64(5), got.ChunksReplayed)
	assert.Equal(t, uint64(1), got.DataLossEvents)
	assert.Equal(t, uint64(1), got.FlowControlViolations)
}

func TestConcurrentRecording(t *testing.T) {
	s := &StreamingStatistics{}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RecordChunkProcessed(1, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(100), s.Snapshot().ChunksProcessed)
}
