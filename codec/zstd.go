package codec

import (
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/hobu-inc/ept/point"
	"github.com/hobu-inc/ept/voxel"
)

// zstdCodec wraps the raw layout with zstd compression. Encoders and
// decoders are expensive to build and safe for concurrent use, so one pair
// is shared across every chunk write/read this codec handles.
type zstdCodec struct {
	once    sync.Once
	initErr error
	enc     *zstd.Encoder
	dec     *zstd.Decoder
}

// NewZstd returns the zstd-compressed codec.
func NewZstd() Codec { return &zstdCodec{} }

func (c *zstdCodec) Name() string { return "zstandard" }
func (*zstdCodec) Ext() string    { return ".zst" }

func (c *zstdCodec) init() error {
	c.once.Do(func() {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			c.initErr = errors.Wrap(err, "build zstd encoder")
			return
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			c.initErr = errors.Wrap(err, "build zstd decoder")
			return
		}
		c.enc, c.dec = enc, dec
	})
	return c.initErr
}

func (c *zstdCodec) Encode(points []voxel.Voxel, schema point.Schema) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, err
	}
	raw, err := rawCodec{}.Encode(points, schema)
	if err != nil {
		return nil, err
	}
	return c.enc.EncodeAll(raw, nil), nil
}

func (c *zstdCodec) Decode(data []byte, schema point.Schema) ([]voxel.Voxel, error) {
	if err := c.init(); err != nil {
		return nil, err
	}
	raw, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstd decompress")
	}
	return rawCodec{}.Decode(raw, schema)
}
