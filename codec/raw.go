package codec

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/hobu-inc/ept/point"
	"github.com/hobu-inc/ept/voxel"
)

// rawCodec is the uncompressed reference layout: a point count, then for
// each point three big-endian float64 coordinates, a uint32 attribute
// length, and the attribute bytes themselves.
type rawCodec struct{}

// NewRaw returns the uncompressed codec.
func NewRaw() Codec { return rawCodec{} }

func (rawCodec) Name() string { return "binary" }
func (rawCodec) Ext() string  { return ".bin" }

func (rawCodec) Encode(points []voxel.Voxel, _ point.Schema) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(points))); err != nil {
		return nil, errors.Wrap(err, "encode point count")
	}
	for _, v := range points {
		for _, c := range [3]float64{v.Point.X, v.Point.Y, v.Point.Z} {
			if err := binary.Write(&buf, binary.BigEndian, math.Float64bits(c)); err != nil {
				return nil, errors.Wrap(err, "encode coordinate")
			}
		}
		if err := binary.Write(&buf, binary.BigEndian, uint32(len(v.Attr))); err != nil {
			return nil, errors.Wrap(err, "encode attribute length")
		}
		if _, err := buf.Write(v.Attr); err != nil {
			return nil, errors.Wrap(err, "encode attribute bytes")
		}
	}
	return buf.Bytes(), nil
}

func (rawCodec) Decode(data []byte, _ point.Schema) ([]voxel.Voxel, error) {
	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, errors.Wrap(err, "decode point count")
	}

	out := make([]voxel.Voxel, 0, count)
	for i := uint32(0); i < count; i++ {
		var p point.Point
		for _, dst := range [3]*float64{&p.X, &p.Y, &p.Z} {
			var bits uint64
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, errors.Wrap(err, "decode coordinate")
			}
			*dst = math.Float64frombits(bits)
		}

		var attrLen uint32
		if err := binary.Read(r, binary.BigEndian, &attrLen); err != nil {
			return nil, errors.Wrap(err, "decode attribute length")
		}
		attr := make([]byte, attrLen)
		if _, err := r.Read(attr); err != nil && attrLen > 0 {
			return nil, errors.Wrap(err, "decode attribute bytes")
		}

		out = append(out, voxel.New(p, attr))
	}
	return out, nil
}
