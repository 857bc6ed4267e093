package nn

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/jmorganca/modalfusion/ml"
)

// Dropout zeroes elements with probability Rate during training and scales
// the survivors by 1/(1-Rate). It is the identity at inference.
type Dropout struct {
	Rate float32

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDropout returns a dropout layer. A zero seed draws from the global
// random source.
func NewDropout(rate float32, seed uint64) (*Dropout, error) {
	if rate < 0 || rate >= 1 {
		return nil, fmt.Errorf("dropout: rate %v must be in [0, 1)", rate)
	}

	d := Dropout{Rate: rate}
	if seed != 0 {
		d.rng = rand.New(rand.NewPCG(seed, seed))
	}

	return &d, nil
}

func (d *Dropout) Forward(t *ml.Tensor, training bool) (*ml.Tensor, error) {
	if !training || d.Rate == 0 {
		return t, nil
	}

	if t.DType() != ml.DTypeF32 {
		return nil, fmt.Errorf("dropout: only f32 is supported, got %v", t.DType())
	}

	keep := 1 - d.Rate
	scale := 1 / keep

	x := t.Floats()
	out := make([]float32, len(x))

	d.mu.Lock()
	for i := range x {
		if d.float32() < keep {
			out[i] = x[i] * scale
		}
	}
	d.mu.Unlock()

	return ml.FromFloats(out, t.Shape()...)
}

func (d *Dropout) float32() float32 {
	if d.rng != nil {
		return d.rng.Float32()
	}

	return rand.Float32()
}
