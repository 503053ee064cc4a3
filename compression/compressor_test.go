package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressDisabledPassesThrough(t *testing.T) {
	c := New(Config{Enabled: false})
	data := []byte("hello world")
	r, err := c.Compress(data)
	require.NoError(t, err)
	assert.False(t, r.Compressed)
	assert.Equal(t, None, r.CompressionType)
	assert.Equal(t, data, r.Data)
}

func TestCompressBelowMinSizePassesThrough(t *testing.T) {
	c := New(Config{Enabled: true, MinSizeForCompression: 1024})
	data := []byte("short")
	r, err := c.Compress(data)
	require.NoError(t, err)
	assert.False(t, r.Compressed)
}

func TestCompressDecompressIdempotentDeflate(t *testing.T) {
	c := New(Config{Enabled: true, MinSizeForCompression: 1})
	c.SetCompressionType(Deflate)
	data := bytes.Repeat([]byte("compressible data pattern "), 200)
	r, err := c.Compress(data)
	require.NoError(t, err)
	assert.True(t, r.Compressed)
	assert.Equal(t, Deflate, r.CompressionType)

	got, err := c.Decompress(r.Data, r.CompressionType)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestCompressDecompressIdempotentLZ4(t *testing.T) {
	c := New(Config{Enabled: true, MinSizeForCompression: 1})
	c.SetCompressionType(LZ4)
	data := bytes.Repeat([]byte("compressible data pattern "), 200)
	r, err := c.Compress(data)
	require.NoError(t, err)
	assert.True(t, r.Compressed)
	assert.Equal(t, LZ4, r.CompressionType)

	got, err := c.Decompress(r.Data, r.CompressionType)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDecompressNoneReturnsInputUnchanged(t *testing.T) {
	c := New(Config{})
	data := []byte("raw")
	got, err := c.Decompress(data, None)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDecompressUnknownTypeFails(t *testing.T) {
	c := New(Config{})
	_, err := c.Decompress([]byte("x"), Type(99))
	assert.Error(t, err)
}

func TestCompressDiscardsWhenRatioTooPoor(t *testing.T) {
	c := New(Config{Enabled: true, MinSizeForCompression: 1, MinCompressionRatio: 0.9})
	// High-entropy random-ish data compresses poorly; use a short
	// already-incompressible pattern to force the discard path.
	data := []byte{0x00, 0xFF, 0x13, 0x71, 0x05, 0x8A, 0xCD, 0x02}
	r, err := c.Compress(data)
	require.NoError(t, err)
	if r.Compressed {
		t.Skip("codec happened to compress this short sample; not a reliable negative case")
	}
	assert.Equal(t, data, r.Data)
}

func TestUpdateNetworkMetricsCategorization(t *testing.T) {
	c := New(Config{})

	// Sustained fast throughput.
	for i := 0; i < 5; i++ {
		c.UpdateNetworkMetrics(2_000_000, 1000)
	}
	s := c.GetSettings()
	assert.Equal(t, Fast, s.NetworkCategory)
	assert.Equal(t, fastLevel, s.CurrentLevel)
	assert.Equal(t, LZ4, s.CompressionType)

	c2 := New(Config{})
	for i := 0; i < 5; i++ {
		c2.UpdateNetworkMetrics(50_000, 1000)
	}
	s2 := c2.GetSettings()
	assert.Equal(t, Slow, s2.NetworkCategory)
	assert.Equal(t, slowLevel, s2.CurrentLevel)
	assert.Equal(t, Deflate, s2.CompressionType)
}

func TestUpdateNetworkMetricsZeroDurationIgnored(t *testing.T) {
	c := New(Config{})
	c.UpdateNetworkMetrics(1_000_000, 1000)
	before := c.GetSettings()
	c.UpdateNetworkMetrics(999, 0)
	after := c.GetSettings()
	assert.Equal(t, before.EstimatedSpeedBps, after.EstimatedSpeedBps)
}

func TestPinnedLevelOverridesAdaptiveAdjustment(t *testing.T) {
	c := New(Config{})
	require.NoError(t, c.SetCompressionLevel(3))
	c.UpdateNetworkMetrics(50_000, 1000) // would normally pick slowLevel
	assert.Equal(t, 3, c.GetSettings().CurrentLevel)

	c.ClearPinnedLevel()
	c.UpdateNetworkMetrics(50_000, 1000)
	assert.Equal(t, slowLevel, c.GetSettings().CurrentLevel)
}

func TestSetCompressionLevelOutOfRange(t *testing.T) {
	c := New(Config{})
	assert.Error(t, c.SetCompressionLevel(10))
	assert.Error(t, c.SetCompressionLevel(-1))
}
