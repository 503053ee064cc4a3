// Package compression implements per-session adaptive compression: a
// measured network speed drives both the compression level and, beyond the
// distilled spec's single DEFLATE path, which codec family is used.
// Grounded on nishisan-dev-n-backup's own compression-type byte convention
// (internal/protocol/frames.go) generalized from one fixed codec to an
// adaptive choice between klauspost/compress/flate and pierrec/lz4.
package compression

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/pierrec/lz4/v4"
	"github.com/rotisserie/eris"
)

// Type identifies the codec family used for one compressed chunk.
type Type uint8

const (
	None Type = iota
	Deflate
	LZ4
)

// NetworkCategory buckets a session's estimated throughput.
type NetworkCategory int

const (
	Unknown NetworkCategory = iota
	Fast
	Medium
	Slow
)

func (c NetworkCategory) String() string {
	switch c {
	case Fast:
		return "fast"
	case Medium:
		return "medium"
	case Slow:
		return "slow"
	default:
		return "unknown"
	}
}

const (
	fastThresholdBps   = 1_000_000
	mediumThresholdBps = 100_000

	fastLevel   = 2
	mediumLevel = 5
	slowLevel   = 8
)

// Result is the outcome of a Compress call.
type Result struct {
	Data            []byte
	Compressed      bool
	CompressionType Type
}

// Settings is a read-only snapshot of the compressor's current tuning.
type Settings struct {
	Enabled           bool
	CurrentLevel      int
	EstimatedSpeedBps uint64
	NetworkCategory   NetworkCategory
	CompressionType   Type
}

// AdaptiveCompressor holds one session's compression state. Zero value is
// not usable; construct with New.
type AdaptiveCompressor struct {
	mu sync.Mutex

	enabled                bool
	minSizeForCompression   int
	minCompressionRatio     float64

	currentLevel    int
	levelPinned     bool
	compressionType Type
	typePinned      bool

	estimatedSpeedBps uint64
	category          NetworkCategory
}

// Config tunes a new AdaptiveCompressor. A zero MinCompressionRatio defaults
// to 0.9 (discard compression that saves less than 10%).
type Config struct {
	Enabled               bool
	MinSizeForCompression int
	MinCompressionRatio   float64
}

func New(cfg Config) *AdaptiveCompressor {
	ratio := cfg.MinCompressionRatio
	if ratio == 0 {
		ratio = 0.9
	}
	return &AdaptiveCompressor{
		enabled:               cfg.Enabled,
		minSizeForCompression: cfg.MinSizeForCompression,
		minCompressionRatio:   ratio,
		currentLevel:          mediumLevel,
		compressionType:       LZ4,
		category:              Unknown,
	}
}

// Compress applies the currently selected codec if enabled and data is
// large enough to be worth compressing, discarding the result in favor of
// the raw bytes if it didn't actually help enough.
func (c *AdaptiveCompressor) Compress(data []byte) (Result, error) {
	c.mu.Lock()
	enabled := c.enabled
	minSize := c.minSizeForCompression
	level := c.currentLevel
	ctype := c.compressionType
	ratio := c.minCompressionRatio
	c.mu.Unlock()

	if !enabled || len(data) < minSize {
		return Result{Data: data, Compressed: false, CompressionType: None}, nil
	}

	var out []byte
	var err error
	switch ctype {
	case LZ4:
		out, err = compressLZ4(data, level)
	default:
		out, err = compressDeflate(data, level)
		ctype = Deflate
	}
	if err != nil {
		return Result{}, eris.Wrap(err, "compress")
	}

	if float64(len(out)) > float64(len(data))*ratio {
		return Result{Data: data, Compressed: false, CompressionType: None}, nil
	}
	return Result{Data: out, Compressed: true, CompressionType: ctype}, nil
}

// Decompress reverses Compress. ctype=None returns data unchanged.
func (c *AdaptiveCompressor) Decompress(data []byte, ctype Type) ([]byte, error) {
	switch ctype {
	case None:
		return data, nil
	case Deflate:
		return decompressDeflate(data)
	case LZ4:
		return decompressLZ4(data)
	default:
		return nil, eris.New("compression: unknown compression type")
	}
}

// UpdateNetworkMetrics folds one throughput sample into the EMA and
// recategorizes/re-adapts the level and codec family, unless the caller has
// pinned either via SetCompressionLevel/SetCompressionType. A zero duration
// sample is ignored since it carries no information.
func (c *AdaptiveCompressor) UpdateNetworkMetrics(bytesTransferred int64, durationMs int64) {
	if durationMs == 0 {
		return
	}
	instant := uint64(bytesTransferred) * 1000 / uint64(durationMs)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.estimatedSpeedBps == 0 {
		c.estimatedSpeedBps = instant
	} else {
		c.estimatedSpeedBps = uint64(0.7*float64(c.estimatedSpeedBps) + 0.3*float64(instant))
	}

	switch {
	case c.estimatedSpeedBps >= fastThresholdBps:
		c.category = Fast
	case c.estimatedSpeedBps >= mediumThresholdBps:
		c.category = Medium
	default:
		c.category = Slow
	}

	if !c.levelPinned {
		switch c.category {
		case Fast:
			c.currentLevel = fastLevel
		case Medium:
			c.currentLevel = mediumLevel
		default:
			c.currentLevel = slowLevel
		}
	}
	if !c.typePinned {
		switch c.category {
		case Slow:
			c.compressionType = Deflate
		default:
			c.compressionType = LZ4
		}
	}
}

// SetCompressionLevel pins an explicit 0-9 level, used by whichever codec
// (DEFLATE or LZ4) is active, overriding adaptive
// adjustment until cleared with ClearPinnedLevel.
func (c *AdaptiveCompressor) SetCompressionLevel(level int) error {
	if level < 0 || level > 9 {
		return eris.New(fmt.Sprintf("compression: level %d out of range [0,9]", level))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentLevel = level
	c.levelPinned = true
	return nil
}

// ClearPinnedLevel resumes adaptive level adjustment on the next metrics
// update.
func (c *AdaptiveCompressor) ClearPinnedLevel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.levelPinned = false
}

// SetCompressionType pins an explicit codec family, overriding adaptive
// family selection.
func (c *AdaptiveCompressor) SetCompressionType(t Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compressionType = t
	c.typePinned = true
}

func (c *AdaptiveCompressor) SetCompressionEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

func (c *AdaptiveCompressor) GetSettings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Settings{
		Enabled:           c.enabled,
		CurrentLevel:      c.currentLevel,
		EstimatedSpeedBps: c.estimatedSpeedBps,
		NetworkCategory:   c.category,
		CompressionType:   c.compressionType,
	}
}

func compressDeflate(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressDeflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func compressLZ4(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	opts := []lz4.Option{lz4.CompressionLevelOption(lz4Level(level))}
	if err := w.Apply(opts...); err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// lz4Level maps the shared 0-9 DEFLATE-style level scale onto lz4's own
// fast/high-compression level constants, since the two libraries don't
// share a level space.
func lz4Level(level int) lz4.CompressionLevel {
	if level >= 7 {
		return lz4.Level9
	}
	if level >= 4 {
		return lz4.Level5
	}
	return lz4.Fast
}
