package ml

import (
	"fmt"
	"strings"
)

type DumpOptions struct {
	// Items is the number of elements to print at the beginning and end of each dimension.
	Items int

	// Precision is the number of decimal places to print. Applies to float32.
	Precision int
}

func Dump(t *Tensor, opts ...DumpOptions) string {
	if t == nil {
		return "<nil>"
	}

	if len(opts) < 1 {
		opts = append(opts, DumpOptions{
			Items:     3,
			Precision: 4,
		})
	}

	switch t.DType() {
	case DTypeF32:
		return dump(t.Floats(), t.Shape(), opts[0], func(v float32) string {
			return fmt.Sprintf("%.*f", opts[0].Precision, v)
		})
	case DTypeI32:
		return dump(t.Ints(), t.Shape(), opts[0], func(v int32) string {
			return fmt.Sprint(v)
		})
	default:
		return "<unsupported>"
	}
}

func dump[S ~[]E, E number](s S, shape []int, opts DumpOptions, format func(E) string) string {
	var sb strings.Builder
	var f func([]int, int)
	f = func(dims []int, stride int) {
		prefix := strings.Repeat(" ", len(shape)-len(dims)+1)
		fmt.Fprint(&sb, "[")
		defer func() { fmt.Fprint(&sb, "]") }()
		for i := 0; i < dims[0]; i++ {
			if i >= opts.Items && i < dims[0]-opts.Items {
				fmt.Fprint(&sb, "..., ")
				// skip to next printable element
				skip := dims[0] - 2*opts.Items
				if len(dims) > 1 {
					stride += mul(append(dims[1:], skip)...)
					fmt.Fprint(&sb, strings.Repeat("\n", len(dims)-1), prefix)
				}
				i += skip - 1
			} else if len(dims) > 1 {
				f(dims[1:], stride)
				stride += mul(dims[1:]...)
				if i < dims[0]-1 {
					fmt.Fprint(&sb, ",", strings.Repeat("\n", len(dims)-1), prefix)
				}
			} else {
				fmt.Fprint(&sb, format(s[stride+i]))
				if i < dims[0]-1 {
					fmt.Fprint(&sb, ", ")
				}
			}
		}
	}
	f(shape, 0)

	return sb.String()
}
