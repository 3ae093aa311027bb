package diagnostics

import (
	"bytes"
	"strings"
	"testing"
)

func TestZstdRoundTrip(t *testing.T) {
	raw := []byte(strings.Repeat(`{"meta":{"task_type":"DAP"},"insights":[]}`, 50))
	packed, err := compressZstd(raw)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if len(packed) >= len(raw) {
		t.Fatalf("expected repetitive text to shrink: %d >= %d", len(packed), len(raw))
	}
	unpacked, err := decompressZstd(packed)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(unpacked, raw) {
		t.Fatalf("round trip mismatch")
	}
}

func TestDecompressRejectsGarbage(t *testing.T) {
	if _, err := decompressZstd([]byte("not zstd at all")); err == nil {
		t.Fatalf("expected error for non-zstd input")
	}
}
