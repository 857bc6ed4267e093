package ml

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFromBytes(t *testing.T) {
	want := []float32{1, -2.5, 0.125, 1024}
	src := mustFloats(t, want, 2, 2)

	for _, dtype := range []string{"F32", "F16", "bf16"} {
		t.Run(dtype, func(t *testing.T) {
			b, err := src.Bytes(dtype)
			if err != nil {
				t.Fatal(err)
			}

			got, err := FromBytes(dtype, b, 2, 2)
			if err != nil {
				t.Fatal(err)
			}

			// every value is exactly representable in all three formats
			if diff := cmp.Diff(want, got.Floats()); diff != "" {
				t.Errorf("%s mismatch (-want +got):\n%s", dtype, diff)
			}
		})
	}
}

func TestFromBytesErrors(t *testing.T) {
	if _, err := FromBytes("F16", []byte{1, 2, 3}, 1); err == nil {
		t.Error("expected odd length error")
	}

	if _, err := FromBytes("Q4_0", []byte{1, 2}, 1); err == nil {
		t.Error("expected unknown dtype error")
	}

	if _, err := FromBytes("F32", make([]byte, 8), 3); err == nil {
		t.Error("expected shape error")
	}
}
