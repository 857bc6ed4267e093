package nn

import (
	"math"
	"math/rand/v2"

	"github.com/jmorganca/modalfusion/ml"
)

// Uniform returns a float32 tensor drawn from U(-limit, limit).
func Uniform(rng *rand.Rand, limit float64, shape ...int) (*ml.Tensor, error) {
	n := 1
	for _, d := range shape {
		n *= d
	}

	s := make([]float32, n)
	for i := range s {
		s[i] = float32((rng.Float64()*2 - 1) * limit)
	}

	return ml.FromFloats(s, shape...)
}

// GlorotUniform draws from U(-l, l) with l = sqrt(6 / (fanIn + fanOut)),
// where the fans are taken from the last two dimensions of shape.
func GlorotUniform(rng *rand.Rand, shape ...int) (*ml.Tensor, error) {
	fanIn, fanOut := 1, 1
	switch len(shape) {
	case 0:
	case 1:
		fanIn, fanOut = shape[0], shape[0]
	default:
		receptive := 1
		for _, d := range shape[:len(shape)-2] {
			receptive *= d
		}
		fanIn = shape[len(shape)-2] * receptive
		fanOut = shape[len(shape)-1] * receptive
	}

	return Uniform(rng, math.Sqrt(6/float64(fanIn+fanOut)), shape...)
}
