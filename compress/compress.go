// Package compress provides the block codecs used for container payloads.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ID identifies a codec in the container header. It fits in four bits.
type ID uint8

const (
	Zstd ID = 0
	LZ4  ID = 1
)

var ErrUnknownCodec = errors.New("compress: unknown codec")

// Codec compresses and decompresses whole blocks.
type Codec interface {
	ID() ID
	Name() string
	Compress(src []byte) ([]byte, error)
	// Decompress inflates src. size is the expected decompressed length; a
	// codec may use it to bound allocation but callers must still check the
	// length of the result.
	Decompress(src []byte, size int) ([]byte, error)
}

var codecs = map[ID]Codec{
	Zstd: zstdCodec{},
	LZ4:  lz4Codec{},
}

// Default returns the codec used when none is configured.
func Default() Codec {
	return codecs[Zstd]
}

// ByID returns the codec registered under id.
func ByID(id ID) (Codec, error) {
	c, ok := codecs[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownCodec, id)
	}
	return c, nil
}

// ByName returns the codec with the given name. The empty name selects the
// default codec.
func ByName(name string) (Codec, error) {
	if name == "" {
		return Default(), nil
	}
	for _, c := range codecs {
		if strings.EqualFold(c.Name(), name) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// ---------------------------------------------------------------------------
// zstd
// ---------------------------------------------------------------------------

type zstdCodec struct{}

func (zstdCodec) ID() ID       { return Zstd }
func (zstdCodec) Name() string { return "zstd" }

func (zstdCodec) Compress(src []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("compress: zstd writer: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(src, make([]byte, 0, len(src)/2+64)), nil
}

func (zstdCodec) Decompress(src []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("compress: negative size %d", size)
	}
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(uint64(size)+1))
	if err != nil {
		return nil, fmt.Errorf("compress: zstd reader: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(src, make([]byte, 0, prealloc(size, len(src))))
	if err != nil {
		return nil, fmt.Errorf("compress: zstd decode: %w", err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// lz4
// ---------------------------------------------------------------------------

type lz4Codec struct{}

func (lz4Codec) ID() ID       { return LZ4 }
func (lz4Codec) Name() string { return "lz4" }

func (lz4Codec) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("compress: lz4 write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: lz4 close: %w", err)
	}
	return buf.Bytes(), nil
}

func (lz4Codec) Decompress(src []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("compress: negative size %d", size)
	}
	r := lz4.NewReader(bytes.NewReader(src))
	// Read one byte past the expected size so oversized payloads are
	// detectable without inflating them completely.
	out, err := io.ReadAll(io.LimitReader(r, int64(size)+1))
	if err != nil {
		return nil, fmt.Errorf("compress: lz4 decode: %w", err)
	}
	return out, nil
}

// prealloc bounds the initial output buffer by what a plausible expansion of
// n compressed bytes could need.
func prealloc(size, n int) int {
	return min(size, n*16+512)
}
