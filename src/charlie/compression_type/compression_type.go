// Package compression_type identifies the compression algorithm an
// envelope's payload was written with and wraps readers/writers
// accordingly.
package compression_type

import (
	"compress/gzip"
	"compress/zlib"
	"io"

	"github.com/DataDog/zstd"
	"github.com/morfoh/xdelta3/src/alfa/errors"
)

type CompressionType string

const (
	CompressionTypeEmpty CompressionType = ""
	CompressionTypeNone  CompressionType = "none"
	CompressionTypeGzip  CompressionType = "gzip"
	CompressionTypeZlib  CompressionType = "zlib"
	CompressionTypeZstd  CompressionType = "zstd"
)

// WrapWriter returns a WriteCloser that compresses everything written
// to it into w; its Close must run before w is considered final (gzip
// and zlib both buffer trailer bytes).
func WrapWriter(ct CompressionType, w io.Writer) (io.WriteCloser, error) {
	switch ct {
	case CompressionTypeNone, CompressionTypeEmpty:
		return nopWriteCloser{w}, nil
	case CompressionTypeGzip:
		return gzip.NewWriter(w), nil
	case CompressionTypeZlib:
		return zlib.NewWriter(w), nil
	case CompressionTypeZstd:
		return zstd.NewWriter(w), nil
	default:
		return nil, errors.Errorf("unsupported compression type: %q", ct)
	}
}

// WrapReader returns a reader that decompresses r according to ct.
func WrapReader(ct CompressionType, r io.Reader) (io.ReadCloser, error) {
	switch ct {
	case CompressionTypeNone, CompressionTypeEmpty:
		return io.NopCloser(r), nil
	case CompressionTypeGzip:
		return gzip.NewReader(r)
	case CompressionTypeZlib:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err)
		}
		return zr, nil
	case CompressionTypeZstd:
		return zstd.NewReader(r), nil
	default:
		return nil, errors.Errorf("unsupported compression type: %q", ct)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
