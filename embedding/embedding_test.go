package embedding

import (
	"testing"

	"github.com/jmorganca/modalfusion/ml"
	"github.com/jmorganca/modalfusion/ml/nn"
	"github.com/jmorganca/modalfusion/params"
)

const testDim = 4

// tokenTable returns a [vocab, testDim] table whose row i is filled with i.
func tokenTable(t testing.TB, vocab int) *nn.Embedding {
	t.Helper()

	s := make([]float32, vocab*testDim)
	for i := range s {
		s[i] = float32(i / testDim)
	}

	w, err := ml.FromFloats(s, vocab, testDim)
	if err != nil {
		t.Fatal(err)
	}

	return &nn.Embedding{Weight: w}
}

// newParams builds params from (problem, key, value) triples.
func newParams(kvs ...[3]any) *params.Params {
	p := params.Default()
	p.Dropout = 0
	for _, kv := range kvs {
		p.ProblemInfo.Set(kv[0].(string), kv[1].(string), kv[2])
	}

	return p
}

func ints(t testing.TB, s []int32, shape ...int) *ml.Tensor {
	t.Helper()

	tt, err := ml.FromInts(s, shape...)
	if err != nil {
		t.Fatal(err)
	}

	return tt
}

func floats(t testing.TB, s []float32, shape ...int) *ml.Tensor {
	t.Helper()

	tt, err := ml.FromFloats(s, shape...)
	if err != nil {
		t.Fatal(err)
	}

	return tt
}

func fill(v float32, shape ...int) []float32 {
	n := 1
	for _, d := range shape {
		n *= d
	}

	s := make([]float32, n)
	for i := range s {
		s[i] = v
	}

	return s
}

// position returns the embedding vector at [b, i] of a [batch, seq, dim] tensor.
func position(t *ml.Tensor, b, i int) []float32 {
	seq, dim := t.Dim(1), t.Dim(2)
	start := (b*seq + i) * dim
	return t.Floats()[start : start+dim]
}

// column returns the values at sequence position i of a [batch, seq] tensor.
func column(t *ml.Tensor, i int) []int32 {
	var out []int32
	for b := range t.Dim(0) {
		out = append(out, t.Ints()[b*t.Dim(1)+i])
	}

	return out
}
