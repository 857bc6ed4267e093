package embedding

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorganca/modalfusion/ml"
	"github.com/jmorganca/modalfusion/types/errtypes"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestNewMultimodal(t *testing.T) {
	p := newParams(
		[3]any{"cls", "tag_modal_type", "category"},
		[3]any{"cls", "tag_modal_info", 10},
		[3]any{"cls", "image_modal_type", "array"},
		[3]any{"cls", "image_modal_info", 6},
		[3]any{"cls", "text_modal_type", "text"},
	)
	p.EnableModalType = true

	logs := captureLogs(t)

	m, err := NewMultimodal(p, tokenTable(t, 20), Options{Seed: 1})
	require.NoError(t, err)

	assert.Equal(t, testDim, m.Dim())
	assert.Equal(t, []int{10, testDim}, m.categories["tag"].Weight.Shape())
	assert.Equal(t, []int{6, testDim}, m.dense["image"].Weight.Shape())
	assert.Equal(t, []int{testDim}, m.dense["image"].Bias.Shape())
	assert.Equal(t, []int{1, 1, testDim}, m.sep.Shape())
	assert.Equal(t, []int{4, testDim}, m.modalType.Weight.Shape())

	var names []string
	for _, modality := range m.Modalities() {
		names = append(names, modality.Name)
	}
	assert.Equal(t, []string{"text", "tag", "image"}, names)

	id, ok := m.TypeID("image")
	assert.True(t, ok)
	assert.Equal(t, 0, id)

	assert.Contains(t, logs.String(), "modal type id mapping")
	assert.Contains(t, logs.String(), `\"tag\": 1`)
}

func TestNewMultimodalDeterministic(t *testing.T) {
	p := newParams(
		[3]any{"cls", "text_modal_type", "text"},
		[3]any{"cls", "tag_modal_type", "category"},
		[3]any{"cls", "tag_modal_info", 5},
	)

	a, err := NewMultimodal(p, tokenTable(t, 8), Options{Seed: 7})
	require.NoError(t, err)

	b, err := NewMultimodal(p, tokenTable(t, 8), Options{Seed: 7})
	require.NoError(t, err)

	assert.Equal(t, a.sep.Floats(), b.sep.Floats())
	assert.Equal(t, a.categories["tag"].Weight.Floats(), b.categories["tag"].Weight.Floats())
}

func TestNewMultimodalErrors(t *testing.T) {
	t.Run("no modalities", func(t *testing.T) {
		_, err := NewMultimodal(newParams(), tokenTable(t, 4), Options{})
		var target *errtypes.EmptyModalitiesError
		require.True(t, errors.As(err, &target), "got %v", err)
		assert.Contains(t, err.Error(), "dataset")
	})

	t.Run("category without vocabulary", func(t *testing.T) {
		_, err := NewMultimodal(newParams(
			[3]any{"cls", "text_modal_type", "text"},
			[3]any{"cls", "tag_modal_type", "category"},
		), tokenTable(t, 4), Options{})

		var target *errtypes.MissingModalInfoError
		require.True(t, errors.As(err, &target), "got %v", err)
		assert.Equal(t, "tag", target.Modality)
		assert.Contains(t, err.Error(), "tag_modal_info")
	})

	t.Run("no token table", func(t *testing.T) {
		_, err := NewMultimodal(newParams([3]any{"cls", "text_modal_type", "text"}), nil, Options{})
		require.Error(t, err)
	})

	t.Run("bad dropout", func(t *testing.T) {
		p := newParams([3]any{"cls", "text_modal_type", "text"})
		p.Dropout = 1
		_, err := NewMultimodal(p, tokenTable(t, 4), Options{})
		require.Error(t, err)
	})
}

func TestNewMultimodalSingleModalityWarning(t *testing.T) {
	p := newParams([3]any{"cls", "text_modal_type", "text"})
	p.EnableModalType = true

	logs := captureLogs(t)

	_, err := NewMultimodal(p, tokenTable(t, 4), Options{Seed: 1})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "no gradient")
}

func TestNewMultimodalWeights(t *testing.T) {
	p := newParams(
		[3]any{"cls", "text_modal_type", "text"},
		[3]any{"cls", "tag_modal_type", "category"},
		[3]any{"cls", "tag_modal_info", 3},
		[3]any{"cls", "image_modal_type", "array"},
	)

	sep := floats(t, []float32{1, 2, 3, 4}, 1, 1, testDim)
	dense := floats(t, fill(0.5, 2, testDim), 2, testDim)

	m, err := NewMultimodal(p, tokenTable(t, 4), Options{
		Seed: 1,
		Weights: Weights{
			"modal_sep_embedding":           sep,
			"multimodal_dense.image.weight": dense,
		},
	})
	require.NoError(t, err)

	assert.Same(t, sep, m.sep)
	require.Contains(t, m.dense, "image")
	assert.Same(t, dense, m.dense["image"].Weight)
	assert.Equal(t, fill(0, testDim), m.dense["image"].Bias.Floats())

	_, err = NewMultimodal(p, tokenTable(t, 4), Options{
		Weights: Weights{"cate_embedding.tag.weight": floats(t, fill(0, 4, testDim), 4, testDim)},
	})
	require.ErrorIs(t, err, ml.ErrShape)
}

func TestArrayWithoutModalTypeWarnsOnce(t *testing.T) {
	p := newParams(
		[3]any{"cls", "text_modal_type", "text"},
		[3]any{"cls", "image_modal_type", "array"},
	)

	m, err := NewMultimodal(p, tokenTable(t, 4), Options{Seed: 1})
	require.NoError(t, err)

	logs := captureLogs(t)

	features := Features{
		"text_input_ids":    ints(t, []int32{1, 2}, 1, 2),
		"image_input_ids":   floats(t, fill(1, 1, 3, 5), 1, 3, 5),
		"image_mask":        ints(t, []int32{1, 1, 1}, 1, 3),
		"image_segment_ids": ints(t, []int32{0, 0, 0}, 1, 3),
	}

	for range 2 {
		_, hidden, err := m.Forward(features, false)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 7, testDim}, hidden.WordEmbedding.Shape())
	}

	assert.Equal(t, 1, strings.Count(logs.String(), "enable_modal_type is not set"))
	assert.Equal(t, []int{5, testDim}, m.dense["image"].Weight.Shape())
}
