// Package codec compresses index artifacts for publication to blob storage.
//
// The compressed bytes are self-describing only through the object key
// extension, so the codec of a published artifact must be known to restore it.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec compresses and decompresses whole artifacts.
// Implementations must be safe for concurrent use.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Name() string
	// Ext is the object key suffix, including the leading dot, or "".
	Ext() string
}

// ErrUnknownCodec is returned by Parse for unsupported names.
var ErrUnknownCodec = errors.New("codec: unknown codec")

// Default is the codec used when none is configured.
var Default Codec = Zstd{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "zstd":
		return Zstd{}, true
	case "lz4":
		return LZ4{}, true
	case "none", "":
		return None{}, true
	default:
		return nil, false
	}
}

// Parse is ByName with an error for unknown names.
func Parse(name string) (Codec, error) {
	c, ok := ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return c, nil
}

// None stores artifacts uncompressed.
type None struct{}

func (None) Compress(data []byte) ([]byte, error)   { return data, nil }
func (None) Decompress(data []byte) ([]byte, error) { return data, nil }
func (None) Name() string                           { return "none" }
func (None) Ext() string                            { return "" }

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	return dec
}

// Zstd compresses with Zstandard. Slower than LZ4 with a better ratio.
type Zstd struct{}

// Compress implements Codec.
func (Zstd) Compress(data []byte) ([]byte, error) {
	enc := getZstdEncoder()
	defer zstdEncoderPool.Put(enc)

	return enc.EncodeAll(data, nil), nil
}

// Decompress implements Codec.
func (Zstd) Decompress(data []byte) ([]byte, error) {
	dec := getZstdDecoder()
	defer zstdDecoderPool.Put(dec)

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}

func (Zstd) Name() string { return "zstd" }
func (Zstd) Ext() string  { return ".zst" }

// LZ4 compresses with the LZ4 frame format.
type LZ4 struct{}

// Compress implements Codec.
func (LZ4) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress implements Codec.
func (LZ4) Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	return out, nil
}

func (LZ4) Name() string { return "lz4" }
func (LZ4) Ext() string  { return ".lz4" }
