package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// CompressionAlgo names how a stored snapshot is encoded.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultSnapshotThreshold is the JSON size above which snapshots are compressed.
const DefaultSnapshotThreshold = 4 * 1024

// SnapshotCodec stores JSON documents as plain jsonb when small and as
// zstd-compressed bytes when large. Safe for concurrent use.
type SnapshotCodec struct {
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

// NewSnapshotCodec creates a codec. threshold <= 0 uses DefaultSnapshotThreshold.
func NewSnapshotCodec(threshold int) (*SnapshotCodec, error) {
	if threshold <= 0 {
		threshold = DefaultSnapshotThreshold
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &SnapshotCodec{encoder: encoder, decoder: decoder, threshold: threshold}, nil
}

// Encode marshals v. Exactly one of raw and compressed is non-nil, unless v is nil.
func (c *SnapshotCodec) Encode(v any) (raw json.RawMessage, compressed []byte, algo CompressionAlgo, err error) {
	if v == nil {
		return nil, nil, CompressionNone, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if len(data) <= c.threshold {
		return data, nil, CompressionNone, nil
	}
	return nil, c.encoder.EncodeAll(data, nil), CompressionZstd, nil
}

// Decode unmarshals whichever of raw and compressed algo says is in use.
// It reports false when there is nothing stored.
func (c *SnapshotCodec) Decode(raw json.RawMessage, compressed []byte, algo CompressionAlgo, v any) (bool, error) {
	data := []byte(raw)
	if algo == CompressionZstd {
		if len(compressed) == 0 {
			return false, nil
		}
		decompressed, err := c.decoder.DecodeAll(compressed, nil)
		if err != nil {
			return false, fmt.Errorf("decompress snapshot: %w", err)
		}
		data = decompressed
	}

	if len(data) == 0 || string(data) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return true, nil
}
