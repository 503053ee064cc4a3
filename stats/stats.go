// Package stats holds the service-wide atomic counters exposed by
// StreamingDataService.GetStatistics. Counters are updated with
// sync/atomic rather than a mutex so the hot output/input path never
// blocks on observability bookkeeping; per the concurrency model, a
// snapshot's fields are not guaranteed consistent with each other.
package stats

import "sync/atomic"

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	SessionsCreated    uint64
	SessionsDestroyed  uint64
	ClientsRegistered  uint64
	ClientsUnregistered uint64
	ChunksProcessed    uint64
	BytesProcessed     uint64
	BytesCompressedOut uint64
	ReplaysServed      uint64
	ChunksReplayed     uint64
	DataLossEvents     uint64
	FlowControlViolations uint64
	ProtocolErrors     uint64
	HeartbeatTimeouts  uint64
}

// StreamingStatistics aggregates service-wide counters. Zero value is ready
// to use.
type StreamingStatistics struct {
	sessionsCreated       atomic.Uint64
	sessionsDestroyed     atomic.Uint64
	clientsRegistered     atomic.Uint64
	clientsUnregistered   atomic.Uint64
	chunksProcessed       atomic.Uint64
	bytesProcessed        atomic.Uint64
	bytesCompressedOut    atomic.Uint64
	replaysServed         atomic.Uint64
	chunksReplayed        atomic.Uint64
	dataLossEvents        atomic.Uint64
	flowControlViolations atomic.Uint64
	protocolErrors        atomic.Uint64
	heartbeatTimeouts     atomic.Uint64
}

func (s *StreamingStatistics) RecordSessionCreated()   { s.sessionsCreated.Add(1) }
func (s *StreamingStatistics) RecordSessionDestroyed() { s.sessionsDestroyed.Add(1) }
func (s *StreamingStatistics) RecordClientRegistered()   { s.clientsRegistered.Add(1) }
func (s *StreamingStatistics) RecordClientUnregistered() { s.clientsUnregistered.Add(1) }

func (s *StreamingStatistics) RecordChunkProcessed(rawBytes, compressedBytes int) {
	s.chunksProcessed.Add(1)
	s.bytesProcessed.Add(uint64(rawBytes))
	s.bytesCompressedOut.Add(uint64(compressedBytes))
}

func (s *StreamingStatistics) RecordReplay(chunksReplayed uint64, dataLost bool) {
	s.replaysServed.Add(1)
	s.chunksReplayed.Add(chunksReplayed)
	if dataLost {
		s.dataLossEvents.Add(1)
	}
}

func (s *StreamingStatistics) RecordFlowControlViolation() { s.flowControlViolations.Add(1) }
func (s *StreamingStatistics) RecordProtocolError()        { s.protocolErrors.Add(1) }
func (s *StreamingStatistics) RecordHeartbeatTimeout()      { s.heartbeatTimeouts.Add(1) }

// Snapshot reads all counters independently; by the time the caller sees
// the result, a concurrent update may have advanced one field but not
// another.
func (s *StreamingStatistics) Snapshot() Snapshot {
	return Snapshot{
		SessionsCreated:       s.sessionsCreated.Load(),
		SessionsDestroyed:     s.sessionsDestroyed.Load(),
		ClientsRegistered:     s.clientsRegistered.Load(),
		ClientsUnregistered:   s.clientsUnregistered.Load(),
		ChunksProcessed:       s.chunksProcessed.Load(),
		BytesProcessed:        s.bytesProcessed.Load(),
		BytesCompressedOut:    s.bytesCompressedOut.Load(),
		ReplaysServed:         s.replaysServed.Load(),
		ChunksReplayed:        s.chunksReplayed.Load(),
		DataLossEvents:        s.dataLossEvents.Load(),
		FlowControlViolations: s.flowControlViolations.Load(),
		ProtocolErrors:        s.protocolErrors.Load(),
		HeartbeatTimeouts:     s.heartbeatTimeouts.Load(),
	}
}
