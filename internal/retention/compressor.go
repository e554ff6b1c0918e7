package retention

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"signalgate/internal/retention/interfaces"
	"signalgate/internal/structures"
)

type ZstdCompression struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func (z *ZstdCompression) Compress(val []byte) ([]byte, error) {
	return z.encoder.EncodeAll(val, make([]byte, 0, len(val)/2)), nil
}

func (z *ZstdCompression) Decompress(val []byte) ([]byte, error) {
	return z.decoder.DecodeAll(val, nil)
}

// NewZstdCompressor builds the snapshot codec. The encoder level comes from
// persistence.compressionLevel (1 fastest to 4 best); zero keeps the library
// default, which suits the small entitlement snapshots this daemon writes.
func NewZstdCompressor(conf *structures.Config) (interfaces.CompressorInterface, error) {
	level := zstd.SpeedDefault
	if conf.Persistence.CompressionLevel > 0 {
		level = zstd.EncoderLevel(conf.Persistence.CompressionLevel)
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &ZstdCompression{encoder: encoder, decoder: decoder}, nil
}
