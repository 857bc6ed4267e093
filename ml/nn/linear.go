package nn

import (
	"fmt"

	"github.com/jmorganca/modalfusion/ml"
)

// Linear projects the trailing dimension of its input from Weight.Dim(0) to
// Weight.Dim(1). Bias is optional.
type Linear struct {
	Weight *ml.Tensor
	Bias   *ml.Tensor
}

func (m *Linear) Forward(t *ml.Tensor) (*ml.Tensor, error) {
	if m.Weight == nil {
		return nil, fmt.Errorf("linear: missing weight")
	}

	t, err := t.Mulmat(m.Weight)
	if err != nil {
		return nil, err
	}

	if m.Bias != nil {
		t, err = t.Add(m.Bias)
		if err != nil {
			return nil, err
		}
	}

	return t, nil
}
