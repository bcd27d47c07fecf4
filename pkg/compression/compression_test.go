package compression

import (
	"bytes"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("keyra compression round trip payload ", 50))

	for _, algorithm := range []Algorithm{AlgorithmNone, AlgorithmSnappy, AlgorithmZstd, AlgorithmGzip} {
		compressor, err := NewCompressor(algorithm)
		if err != nil {
			t.Fatalf("NewCompressor(%s) failed: %v", algorithm, err)
		}

		compressed, err := compressor.Compress(data)
		if err != nil {
			t.Fatalf("Compress(%s) failed: %v", algorithm, err)
		}

		decompressed, err := compressor.Decompress(compressed)
		if err != nil {
			t.Fatalf("Decompress(%s) failed: %v", algorithm, err)
		}
		if !bytes.Equal(decompressed, data) {
			t.Errorf("%s: round trip mismatch", algorithm)
		}

		compressor.Close()
	}
}

func TestCompressionReducesSize(t *testing.T) {
	data := []byte(strings.Repeat("abcdefgh", 1000))

	for _, algorithm := range []Algorithm{AlgorithmSnappy, AlgorithmZstd, AlgorithmGzip} {
		compressor, err := NewCompressor(algorithm)
		if err != nil {
			t.Fatalf("NewCompressor(%s) failed: %v", algorithm, err)
		}
		compressed, err := compressor.Compress(data)
		if err != nil {
			t.Fatalf("Compress(%s) failed: %v", algorithm, err)
		}
		if len(compressed) >= len(data) {
			t.Errorf("%s: expected compressed size < %d, got %d", algorithm, len(data), len(compressed))
		}
		compressor.Close()
	}
}

func TestEmptyInput(t *testing.T) {
	compressor, err := NewCompressor(AlgorithmZstd)
	if err != nil {
		t.Fatalf("NewCompressor failed: %v", err)
	}
	defer compressor.Close()

	compressed, err := compressor.Compress(nil)
	if err != nil {
		t.Fatalf("Compress of empty input failed: %v", err)
	}
	if len(compressed) != 0 {
		t.Errorf("Expected empty output, got %d bytes", len(compressed))
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		name string
		want Algorithm
	}{
		{"", AlgorithmNone},
		{"none", AlgorithmNone},
		{"snappy", AlgorithmSnappy},
		{"zstd", AlgorithmZstd},
		{"gzip", AlgorithmGzip},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.name)
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q) failed: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("ParseAlgorithm(%q): expected %v, got %v", tt.name, tt.want, got)
		}
	}

	if _, err := ParseAlgorithm("lz77"); err == nil {
		t.Error("Expected error for unsupported algorithm")
	}
}
