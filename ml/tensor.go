package ml

import (
	"errors"
	"fmt"
	"slices"

	"github.com/pdevine/tensor"
)

type DType int

const (
	DTypeF32 DType = iota
	DTypeI32
	DTypeOther
)

func (d DType) String() string {
	switch d {
	case DTypeF32:
		return "f32"
	case DTypeI32:
		return "i32"
	default:
		return "other"
	}
}

var ErrShape = errors.New("shape mismatch")

// Tensor is a dense, row-major CPU tensor. Operations never modify their
// receiver or arguments; each returns a freshly allocated tensor.
type Tensor struct {
	d *tensor.Dense
}

type number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

func mul[T number](s ...T) T {
	p := T(1)
	for _, v := range s {
		p *= v
	}

	return p
}

func checkShape(n int, shape []int) error {
	if len(shape) == 0 {
		return fmt.Errorf("%w: empty shape", ErrShape)
	}

	for _, d := range shape {
		if d <= 0 {
			return fmt.Errorf("%w: invalid dimension in %v", ErrShape, shape)
		}
	}

	if want := mul(shape...); want != n {
		return fmt.Errorf("%w: %d elements cannot have shape %v", ErrShape, n, shape)
	}

	return nil
}

// FromFloats wraps s as a float32 tensor. The tensor takes ownership of s.
func FromFloats(s []float32, shape ...int) (*Tensor, error) {
	if err := checkShape(len(s), shape); err != nil {
		return nil, err
	}

	return &Tensor{d: tensor.New(tensor.WithShape(shape...), tensor.WithBacking(s))}, nil
}

// FromInts wraps s as an int32 tensor. The tensor takes ownership of s.
func FromInts(s []int32, shape ...int) (*Tensor, error) {
	if err := checkShape(len(s), shape); err != nil {
		return nil, err
	}

	return &Tensor{d: tensor.New(tensor.WithShape(shape...), tensor.WithBacking(s))}, nil
}

// Full returns a tensor of the given shape with every element set to v.
// It panics if shape is invalid.
func Full(dtype DType, v float64, shape ...int) *Tensor {
	n := mul(shape...)

	var (
		t   *Tensor
		err error
	)
	switch dtype {
	case DTypeF32:
		s := make([]float32, n)
		for i := range s {
			s[i] = float32(v)
		}
		t, err = FromFloats(s, shape...)
	case DTypeI32:
		s := make([]int32, n)
		for i := range s {
			s[i] = int32(v)
		}
		t, err = FromInts(s, shape...)
	default:
		err = fmt.Errorf("unsupported dtype %v", dtype)
	}

	if err != nil {
		panic(err)
	}

	return t
}

func Zeros(dtype DType, shape ...int) *Tensor {
	return Full(dtype, 0, shape...)
}

func (t *Tensor) Shape() []int {
	return slices.Clone([]int(t.d.Shape()))
}

func (t *Tensor) Dim(n int) int {
	return t.d.Shape()[n]
}

func (t *Tensor) Rank() int {
	return t.d.Dims()
}

func (t *Tensor) DType() DType {
	switch t.d.Dtype() {
	case tensor.Float32:
		return DTypeF32
	case tensor.Int32:
		return DTypeI32
	default:
		return DTypeOther
	}
}

// Floats returns the backing data of a float32 tensor, or nil for other
// dtypes. Callers must not modify the returned slice.
func (t *Tensor) Floats() []float32 {
	s, _ := t.d.Data().([]float32)
	return s
}

// Ints returns the backing data of an int32 tensor, or nil for other dtypes.
// Callers must not modify the returned slice.
func (t *Tensor) Ints() []int32 {
	s, _ := t.d.Data().([]int32)
	return s
}

func (t *Tensor) String() string {
	return Dump(t)
}

func (t *Tensor) Clone() *Tensor {
	return &Tensor{d: t.d.Clone().(*tensor.Dense)}
}

func (t *Tensor) ZerosLike() *Tensor {
	return Zeros(t.DType(), t.Shape()...)
}

// Reshape returns a view of t with a new shape sharing the same storage.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	if err := checkShape(mul(t.Shape()...), shape); err != nil {
		return nil, err
	}

	d := t.d.ShallowClone()
	if err := d.Reshape(shape...); err != nil {
		return nil, err
	}

	return &Tensor{d: d}, nil
}

// Concat joins t and t2 along dim. All other dimensions must agree.
func (t *Tensor) Concat(t2 *Tensor, dim int) (*Tensor, error) {
	return Concat(dim, t, t2)
}

// Concat joins ts along dim.
func Concat(dim int, ts ...*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return nil, errors.New("concat: no tensors")
	}

	if len(ts) == 1 {
		return ts[0].Clone(), nil
	}

	shape := ts[0].Shape()
	others := make([]tensor.Tensor, 0, len(ts)-1)
	for _, t := range ts[1:] {
		if t.DType() != ts[0].DType() {
			return nil, fmt.Errorf("concat: dtype %v does not match %v", t.DType(), ts[0].DType())
		}

		other := t.Shape()
		if len(other) != len(shape) {
			return nil, fmt.Errorf("%w: concat %v with %v", ErrShape, shape, other)
		}

		for i := range shape {
			if i != dim && shape[i] != other[i] {
				return nil, fmt.Errorf("%w: concat %v with %v on dim %d", ErrShape, shape, other, dim)
			}
		}

		others = append(others, t.d)
	}

	out, err := tensor.Concat(dim, ts[0].d, others...)
	if err != nil {
		return nil, fmt.Errorf("concat: %w", err)
	}

	return &Tensor{d: out.(*tensor.Dense)}, nil
}

// Repeat tiles t n times along dim.
func (t *Tensor) Repeat(dim, n int) (*Tensor, error) {
	if n < 1 {
		return nil, fmt.Errorf("repeat: count %d must be positive", n)
	}

	ts := make([]*Tensor, n)
	for i := range ts {
		ts[i] = t
	}

	return Concat(dim, ts...)
}

// Narrow returns the slice [start, start+length) of t along dim as a new,
// contiguous tensor.
func (t *Tensor) Narrow(dim, start, length int) (*Tensor, error) {
	shape := t.Shape()
	if dim < 0 || dim >= len(shape) {
		return nil, fmt.Errorf("narrow: dim %d out of range for %v", dim, shape)
	}

	if start < 0 || length < 1 || start+length > shape[dim] {
		return nil, fmt.Errorf("narrow: [%d, %d) out of range for %v on dim %d", start, start+length, shape, dim)
	}

	outer, inner := mul(shape[:dim]...), mul(shape[dim+1:]...)
	shape[dim] = length

	switch t.DType() {
	case DTypeF32:
		return FromFloats(narrow(t.Floats(), outer, inner, t.Dim(dim), start, length), shape...)
	case DTypeI32:
		return FromInts(narrow(t.Ints(), outer, inner, t.Dim(dim), start, length), shape...)
	default:
		return nil, fmt.Errorf("narrow: unsupported dtype %v", t.DType())
	}
}

func narrow[S ~[]E, E any](s S, outer, inner, n, start, length int) S {
	out := make(S, 0, outer*length*inner)
	for o := range outer {
		base := (o*n + start) * inner
		out = append(out, s[base:base+length*inner]...)
	}

	return out
}

// Rows gathers rows of a [rows, dim] float32 table indexed by the int32
// tensor ids. The result has shape ids.Shape() + [dim].
func (t *Tensor) Rows(ids *Tensor) (*Tensor, error) {
	if t.Rank() != 2 || t.DType() != DTypeF32 {
		return nil, fmt.Errorf("rows: table must be a 2D f32 tensor, got %v %v", t.DType(), t.Shape())
	}

	if ids.DType() != DTypeI32 {
		return nil, fmt.Errorf("rows: ids must be i32, got %v", ids.DType())
	}

	rows, dim := t.Dim(0), t.Dim(1)
	table := t.Floats()

	out := make([]float32, 0, len(ids.Ints())*dim)
	for _, id := range ids.Ints() {
		if id < 0 || int(id) >= rows {
			return nil, fmt.Errorf("rows: index %d out of range [0, %d)", id, rows)
		}

		out = append(out, table[int(id)*dim:(int(id)+1)*dim]...)
	}

	return FromFloats(out, append(ids.Shape(), dim)...)
}

// Mulmat multiplies the trailing dimension of t by the [k, n] matrix w and
// returns a tensor of shape t.Shape()[:rank-1] + [n].
func (t *Tensor) Mulmat(w *Tensor) (*Tensor, error) {
	if w.Rank() != 2 {
		return nil, fmt.Errorf("mulmat: weight must be 2D, got %v", w.Shape())
	}

	shape := t.Shape()
	k := shape[len(shape)-1]
	if k != w.Dim(0) {
		return nil, fmt.Errorf("%w: mulmat %v by %v", ErrShape, shape, w.Shape())
	}

	a := t.d.ShallowClone()
	if err := a.Reshape(mul(shape...)/k, k); err != nil {
		return nil, err
	}

	out, err := a.MatMul(w.d)
	if err != nil {
		return nil, fmt.Errorf("mulmat: %w", err)
	}

	if err := out.Reshape(append(shape[:len(shape)-1], w.Dim(1))...); err != nil {
		return nil, err
	}

	return &Tensor{d: out}, nil
}

// Add returns t + t2. t2 must either have the same shape as t or match its
// trailing dimensions, in which case it is broadcast over the leading ones.
func (t *Tensor) Add(t2 *Tensor) (*Tensor, error) {
	if t.DType() != DTypeF32 || t2.DType() != DTypeF32 {
		return nil, fmt.Errorf("add: only f32 is supported, got %v and %v", t.DType(), t2.DType())
	}

	a, b := t.Shape(), t2.Shape()
	if slices.Equal(a, b) {
		out, err := t.d.Add(t2.d)
		if err != nil {
			return nil, fmt.Errorf("add: %w", err)
		}

		return &Tensor{d: out}, nil
	}

	if len(b) > len(a) || !slices.Equal(a[len(a)-len(b):], b) {
		return nil, fmt.Errorf("%w: add %v and %v", ErrShape, a, b)
	}

	x, y := t.Floats(), t2.Floats()
	out := make([]float32, len(x))
	for i := range x {
		out[i] = x[i] + y[i%len(y)]
	}

	return FromFloats(out, a...)
}

// Scale returns t * s.
func (t *Tensor) Scale(s float32) (*Tensor, error) {
	if t.DType() != DTypeF32 {
		return nil, fmt.Errorf("scale: only f32 is supported, got %v", t.DType())
	}

	x := t.Floats()
	out := make([]float32, len(x))
	for i := range x {
		out[i] = x[i] * s
	}

	return FromFloats(out, t.Shape()...)
}
