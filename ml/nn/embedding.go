package nn

import (
	"fmt"

	"github.com/jmorganca/modalfusion/ml"
)

type Embedding struct {
	Weight *ml.Tensor
}

func (m *Embedding) Forward(ids *ml.Tensor) (*ml.Tensor, error) {
	if m.Weight == nil {
		return nil, fmt.Errorf("embedding: missing weight")
	}

	return m.Weight.Rows(ids)
}

// Dim is the width of each embedding row.
func (m *Embedding) Dim() int {
	return m.Weight.Dim(1)
}
