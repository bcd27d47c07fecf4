package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
)

// Algorithm represents a compression algorithm
type Algorithm int

const (
	// AlgorithmNone indicates no compression
	AlgorithmNone Algorithm = iota
	// AlgorithmSnappy is fast compression with moderate ratio
	AlgorithmSnappy
	// AlgorithmZstd is balanced compression with good speed and ratio (recommended)
	AlgorithmZstd
	// AlgorithmGzip is standard compression with good ratio
	AlgorithmGzip
)

// String returns the string representation of the algorithm
func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "none"
	case AlgorithmSnappy:
		return "snappy"
	case AlgorithmZstd:
		return "zstd"
	case AlgorithmGzip:
		return "gzip"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps an algorithm name (as used in the export endpoint's
// query parameter) to an Algorithm. An empty name means no compression.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "", "none":
		return AlgorithmNone, nil
	case "snappy":
		return AlgorithmSnappy, nil
	case "zstd":
		return AlgorithmZstd, nil
	case "gzip":
		return AlgorithmGzip, nil
	default:
		return AlgorithmNone, fmt.Errorf("unsupported compression algorithm: %s", name)
	}
}

// Compressor compresses and decompresses byte slices with one algorithm.
type Compressor struct {
	algorithm Algorithm
	level     int
	zstdEnc   *zstd.Encoder
	zstdDec   *zstd.Decoder
}

// NewCompressor creates a compressor for the given algorithm with a default
// level (zstd 3, gzip default).
func NewCompressor(algorithm Algorithm) (*Compressor, error) {
	c := &Compressor{algorithm: algorithm}

	switch algorithm {
	case AlgorithmZstd:
		c.level = 3
		var err error
		c.zstdEnc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.level)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		c.zstdDec, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
	case AlgorithmGzip:
		c.level = gzip.DefaultCompression
	}

	return c, nil
}

// Compress compresses the input data
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	switch c.algorithm {
	case AlgorithmNone:
		return data, nil

	case AlgorithmSnappy:
		return snappy.Encode(nil, data), nil

	case AlgorithmZstd:
		return c.zstdEnc.EncodeAll(data, nil), nil

	case AlgorithmGzip:
		var buf bytes.Buffer
		writer, err := gzip.NewWriterLevel(&buf, c.level)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write gzip data: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("failed to close gzip writer: %w", err)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %v", c.algorithm)
	}
}

// Decompress decompresses the input data
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	switch c.algorithm {
	case AlgorithmNone:
		return data, nil

	case AlgorithmSnappy:
		decoded, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode snappy: %w", err)
		}
		return decoded, nil

	case AlgorithmZstd:
		decoded, err := c.zstdDec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decode zstd: %w", err)
		}
		return decoded, nil

	case AlgorithmGzip:
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer reader.Close()

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, reader); err != nil {
			return nil, fmt.Errorf("failed to read gzip data: %w", err)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %v", c.algorithm)
	}
}

// ContentEncoding returns the HTTP Content-Encoding value for the algorithm,
// or an empty string when no standard value exists.
func (c *Compressor) ContentEncoding() string {
	switch c.algorithm {
	case AlgorithmGzip:
		return "gzip"
	case AlgorithmZstd:
		return "zstd"
	default:
		return ""
	}
}

// Close closes the compressor and releases resources
func (c *Compressor) Close() error {
	if c.zstdEnc != nil {
		c.zstdEnc.Close()
	}
	if c.zstdDec != nil {
		c.zstdDec.Close()
	}
	return nil
}
