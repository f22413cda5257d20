package embedding

import (
	"encoding/binary"
	"math"

	"github.com/jtao/recall/internal/memerr"
)

// EncodeVector serializes a vector as little-endian float32 words.
// The blob width is always 4*len(v); dimension is stored alongside the
// blob so mismatches are detected structurally on read.
func EncodeVector(v Vector) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector deserializes a blob produced by EncodeVector. The declared
// dimension must match the blob width exactly.
func DecodeVector(blob []byte, dims int) (Vector, error) {
	if len(blob) != 4*dims {
		return nil, memerr.ErrDimensionMismatch
	}
	v := make(Vector, dims)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v, nil
}
