package embedding

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/jmorganca/modalfusion/ml"
)

// Features is the per-call input bundle, keyed by {modality}_input_ids,
// {modality}_mask, {modality}_segment_ids and {problem}_loss_multiplier.
// Other keys pass through untouched.
type Features map[string]*ml.Tensor

// Keys returns the feature names in sorted order.
func (f Features) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}

	slices.Sort(keys)
	return keys
}

// Hidden is the fused output handed to the encoder.
type Hidden struct {
	// WordEmbedding is [batch, total, dim] float32.
	WordEmbedding *ml.Tensor
	// InputMask is [batch, total] int32, 1 for real positions.
	InputMask *ml.Tensor
	// SegmentIDs is [batch, total] int32.
	SegmentIDs *ml.Tensor
}

type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// FormatFromPath picks a bundle format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		return FormatCBOR
	}

	return FormatJSON
}

type encodedTensor struct {
	DType string    `json:"dtype" cbor:"dtype"`
	Shape []int     `json:"shape" cbor:"shape"`
	Data  []float64 `json:"data" cbor:"data"`
}

func DecodeFeatures(r io.Reader, format Format) (Features, error) {
	var encoded map[string]encodedTensor
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&encoded); err != nil {
			return nil, err
		}
	case FormatCBOR:
		if err := cbor.NewDecoder(r).Decode(&encoded); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported feature format %q", format)
	}

	features := make(Features, len(encoded))
	for name, e := range encoded {
		t, err := e.decode()
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", name, err)
		}

		features[name] = t
	}

	return features, nil
}

func EncodeFeatures(w io.Writer, features Features, format Format) error {
	encoded := make(map[string]encodedTensor, len(features))
	for name, t := range features {
		if t == nil {
			continue
		}

		e := encodedTensor{DType: t.DType().String(), Shape: t.Shape()}
		switch t.DType() {
		case ml.DTypeF32:
			for _, v := range t.Floats() {
				e.Data = append(e.Data, float64(v))
			}
		case ml.DTypeI32:
			for _, v := range t.Ints() {
				e.Data = append(e.Data, float64(v))
			}
		default:
			return fmt.Errorf("feature %q: unsupported dtype %v", name, t.DType())
		}

		encoded[name] = e
	}

	switch format {
	case FormatJSON:
		return json.NewEncoder(w).Encode(encoded)
	case FormatCBOR:
		return cbor.NewEncoder(w).Encode(encoded)
	default:
		return fmt.Errorf("unsupported feature format %q", format)
	}
}

func (e encodedTensor) decode() (*ml.Tensor, error) {
	switch e.DType {
	case "f32", "float32":
		s := make([]float32, len(e.Data))
		for i, v := range e.Data {
			s[i] = float32(v)
		}
		return ml.FromFloats(s, e.Shape...)
	case "i32", "int32", "":
		s := make([]int32, len(e.Data))
		for i, v := range e.Data {
			s[i] = int32(v)
		}
		return ml.FromInts(s, e.Shape...)
	default:
		return nil, fmt.Errorf("unsupported dtype %q", e.DType)
	}
}
