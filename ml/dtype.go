package ml

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// FromBytes decodes little-endian weight data stored as F32, F16 or BF16
// into a float32 tensor.
func FromBytes(dtype string, b []byte, shape ...int) (*Tensor, error) {
	var f32s []float32
	switch strings.ToUpper(dtype) {
	case "F32":
		if len(b)%4 != 0 {
			return nil, fmt.Errorf("f32 data length %d is not a multiple of 4", len(b))
		}

		f32s = make([]float32, len(b)/4)
		if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, f32s); err != nil {
			return nil, err
		}
	case "F16":
		if len(b)%2 != 0 {
			return nil, fmt.Errorf("f16 data length %d is not a multiple of 2", len(b))
		}

		u16s := make([]uint16, len(b)/2)
		if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, u16s); err != nil {
			return nil, err
		}

		f32s = make([]float32, len(u16s))
		for i := range u16s {
			f32s[i] = float16.Frombits(u16s[i]).Float32()
		}
	case "BF16":
		if len(b)%2 != 0 {
			return nil, fmt.Errorf("bf16 data length %d is not a multiple of 2", len(b))
		}

		f32s = bfloat16.DecodeFloat32(b)
	default:
		return nil, fmt.Errorf("unknown data type: %s", dtype)
	}

	return FromFloats(f32s, shape...)
}

// Bytes encodes a float32 tensor as little-endian F32, F16 or BF16.
func (t *Tensor) Bytes(dtype string) ([]byte, error) {
	if t.DType() != DTypeF32 {
		return nil, fmt.Errorf("cannot encode %v tensor", t.DType())
	}

	f32s := t.Floats()

	var buf bytes.Buffer
	switch strings.ToUpper(dtype) {
	case "F32":
		if err := binary.Write(&buf, binary.LittleEndian, f32s); err != nil {
			return nil, err
		}
	case "F16":
		f16s := make([]uint16, len(f32s))
		for i := range f32s {
			f16s[i] = float16.Fromfloat32(f32s[i]).Bits()
		}

		if err := binary.Write(&buf, binary.LittleEndian, f16s); err != nil {
			return nil, err
		}
	case "BF16":
		return bfloat16.EncodeFloat32(f32s), nil
	default:
		return nil, fmt.Errorf("unknown data type: %s", dtype)
	}

	return buf.Bytes(), nil
}
