package cmd

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/jmorganca/modalfusion/embedding"
	"github.com/jmorganca/modalfusion/ml"
)

// rawTensor is a stored weight: little-endian F32, F16 or BF16 bytes.
type rawTensor struct {
	DType string `cbor:"dtype"`
	Shape []int  `cbor:"shape"`
	Data  []byte `cbor:"data"`
}

func loadWeights(path string) (embedding.Weights, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]rawTensor
	if err := cbor.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	weights := make(embedding.Weights, len(raw))
	for name, r := range raw {
		t, err := ml.FromBytes(r.DType, r.Data, r.Shape...)
		if err != nil {
			return nil, fmt.Errorf("weight %q: %w", name, err)
		}

		weights[name] = t
	}

	return weights, nil
}
