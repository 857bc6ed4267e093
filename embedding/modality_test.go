package embedding

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jmorganca/modalfusion/types/errtypes"
)

func TestDeclaredModalities(t *testing.T) {
	p := newParams(
		[3]any{"ner", "image_modal_type", "array"},
		[3]any{"ner", "image_modal_info", 16},
		[3]any{"ner", "text_modal_type", "text"},
		[3]any{"cls", "tag_modal_type", "category"},
		[3]any{"cls", "tag_modal_info", "12"},
		[3]any{"cls", "text_modal_type", "text"},
		[3]any{"cls", "num_classes", 3},
	)

	got, err := declaredModalities(p.ModalInfo())
	if err != nil {
		t.Fatal(err)
	}

	want := []Modality{
		{Name: "image", Type: TypeArray, Size: 16},
		{Name: "text", Type: TypeText},
		{Name: "tag", Type: TypeCategory, Size: 12},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("declaredModalities() mismatch (-want +got):\n%s", diff)
	}
}

func TestDeclaredModalitiesErrors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := declaredModalities(newParams([3]any{"cls", "num_classes", 2}).ModalInfo())
		var target *errtypes.EmptyModalitiesError
		if !errors.As(err, &target) {
			t.Fatalf("expected EmptyModalitiesError, got %v", err)
		}
	})

	t.Run("category without info", func(t *testing.T) {
		_, err := declaredModalities(newParams([3]any{"cls", "tag_modal_type", "category"}).ModalInfo())
		var target *errtypes.MissingModalInfoError
		if !errors.As(err, &target) {
			t.Fatalf("expected MissingModalInfoError, got %v", err)
		}

		if target.Key != "tag_modal_info" {
			t.Errorf("expected key tag_modal_info, got %q", target.Key)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := declaredModalities(newParams([3]any{"cls", "audio_modal_type", "waveform"}).ModalInfo())
		var target *errtypes.InvalidModalTypeError
		if !errors.As(err, &target) {
			t.Fatalf("expected InvalidModalTypeError, got %v", err)
		}
	})

	t.Run("non-positive size", func(t *testing.T) {
		_, err := declaredModalities(newParams(
			[3]any{"cls", "tag_modal_type", "category"},
			[3]any{"cls", "tag_modal_info", 0},
		).ModalInfo())
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestFusionOrder(t *testing.T) {
	cases := []struct {
		name string
		in   []Modality
		want []string
	}{
		{
			name: "text already first",
			in:   []Modality{{Name: "text", Type: TypeText}, {Name: "img", Type: TypeArray}},
			want: []string{"text", "img"},
		},
		{
			name: "text declared last",
			in: []Modality{
				{Name: "zeta", Type: TypeCategory},
				{Name: "img", Type: TypeArray},
				{Name: "text", Type: TypeText},
			},
			want: []string{"text", "zeta", "img"},
		},
		{
			name: "several text modalities keep their order",
			in: []Modality{
				{Name: "b", Type: TypeArray},
				{Name: "query", Type: TypeText},
				{Name: "a", Type: TypeCategory},
				{Name: "doc", Type: TypeText},
			},
			want: []string{"query", "doc", "b", "a"},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, m := range fusionOrder(tt.in) {
				got = append(got, m.Name)
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("fusionOrder() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTypeIDs(t *testing.T) {
	got := typeIDs([]Modality{
		{Name: "text", Type: TypeText},
		{Name: "zeta", Type: TypeCategory},
		{Name: "image", Type: TypeArray},
	})

	want := map[string]int{"image": 0, "text": 1, "zeta": 2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("typeIDs() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseType(t *testing.T) {
	for s, want := range map[string]Type{"text": TypeText, " Array ": TypeArray, "CATEGORY": TypeCategory} {
		got, ok := ParseType(s)
		if !ok || got != want {
			t.Errorf("ParseType(%q) = %v, %v; want %v", s, got, ok, want)
		}
	}

	if _, ok := ParseType("image"); ok {
		t.Error("expected image to be rejected")
	}
}
