package embedding

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/jmorganca/modalfusion/logutil"
	"github.com/jmorganca/modalfusion/ml"
)

// Forward fuses every modality in features into one sequence. The input
// bundle is returned unchanged alongside the result.
func (m *Multimodal) Forward(features Features, training bool) (Features, *Hidden, error) {
	hidden, err := m.fuse(features, training)
	if err != nil {
		return nil, nil, err
	}

	return features, hidden, nil
}

// fuse is the fusion routine shared by every layer variant. Modalities are
// visited in fusion order; each contributes its projected sequence followed
// by one separator position.
func (m *Multimodal) fuse(features Features, training bool) (*Hidden, error) {
	var embeddings, segmentIDs, masks, typeIDs []*ml.Tensor
	batch := -1
	for _, modality := range m.ordered {
		b, err := m.encode(modality, features)
		if err != nil {
			return nil, fmt.Errorf("modality %s: %w", modality.Name, err)
		}

		if batch < 0 {
			batch = b.embedding.Dim(0)
		} else if b.embedding.Dim(0) != batch {
			return nil, fmt.Errorf("modality %s: %w: batch size %d does not match %d", modality.Name, ml.ErrShape, b.embedding.Dim(0), batch)
		}

		embeddings = append(embeddings, b.embedding)
		segmentIDs = append(segmentIDs, b.segmentIDs)
		masks = append(masks, b.mask)

		if m.enableModalType {
			// every position, separator included, carries the modality's type id
			typeIDs = append(typeIDs, ml.Full(ml.DTypeI32, float64(m.typeIDs[modality.Name]), b.mask.Shape()...))
		}

		logutil.Trace("fused modality", "name", modality.Name, "type", modality.Type,
			logutil.Shape("embedding", b.embedding.Shape()),
			logutil.Shape("mask", b.mask.Shape()))
	}

	wordEmbedding, err := ml.Concat(1, embeddings...)
	if err != nil {
		return nil, err
	}

	segments, err := ml.Concat(1, segmentIDs...)
	if err != nil {
		return nil, err
	}

	mask, err := ml.Concat(1, masks...)
	if err != nil {
		return nil, err
	}

	if m.enableModalType {
		ids, err := ml.Concat(1, typeIDs...)
		if err != nil {
			return nil, err
		}

		typeEmbedding, err := m.modalType.Forward(ids)
		if err != nil {
			return nil, fmt.Errorf("modal type embedding: %w", err)
		}

		wordEmbedding, err = wordEmbedding.Add(typeEmbedding)
		if err != nil {
			return nil, err
		}
	}

	wordEmbedding, err = m.dropout.Forward(wordEmbedding, training)
	if err != nil {
		return nil, err
	}

	return &Hidden{
		WordEmbedding: wordEmbedding,
		InputMask:     mask,
		SegmentIDs:    segments,
	}, nil
}

type block struct {
	embedding  *ml.Tensor
	segmentIDs *ml.Tensor
	mask       *ml.Tensor
}

// encode projects one modality and appends its separator position.
func (m *Multimodal) encode(modality Modality, features Features) (*block, error) {
	ids := features[modality.InputIDsKey()]
	if ids == nil {
		return nil, fmt.Errorf("missing feature %q", modality.InputIDsKey())
	}

	if ids.Rank() < 2 {
		return nil, fmt.Errorf("%w: %s must be at least [batch, seq], got %v", ml.ErrShape, modality.InputIDsKey(), ids.Shape())
	}

	batch, seqLen := ids.Dim(0), ids.Dim(1)
	mask := features[modality.MaskKey()]
	segmentIDs := features[modality.SegmentIDsKey()]

	var projected *ml.Tensor
	var err error
	switch modality.Type {
	case TypeText:
		if mask == nil {
			mask = ml.Full(ml.DTypeI32, 1, batch, seqLen)
		}

		if segmentIDs == nil {
			segmentIDs = ml.Zeros(ml.DTypeI32, batch, seqLen)
		}

		projected, err = m.tokens.Forward(ids)
	case TypeArray:
		if !m.enableModalType {
			m.warnArray.Do(func() {
				slog.Warn("array modality present but enable_modal_type is not set; modalities may be hard to tell apart downstream", "modality", modality.Name)
			})
		}

		if ids.Rank() != 3 || ids.DType() != ml.DTypeF32 {
			return nil, fmt.Errorf("%s must be f32 [batch, seq, features], got %v %v", modality.InputIDsKey(), ids.DType(), ids.Shape())
		}

		linear, err := m.projection(modality, ids)
		if err != nil {
			return nil, err
		}

		projected, err = linear.Forward(ids)
		if err != nil {
			return nil, err
		}
	case TypeCategory:
		projected, err = m.categories[modality.Name].Forward(ids)
	default:
		return nil, fmt.Errorf("unsupported modality type %v", modality.Type)
	}
	if err != nil {
		return nil, err
	}

	if want := []int{batch, seqLen, m.dim}; !slices.Equal(projected.Shape(), want) {
		return nil, fmt.Errorf("%w: projected to %v, want %v", ml.ErrShape, projected.Shape(), want)
	}

	for _, f := range []struct {
		key string
		t   *ml.Tensor
	}{
		{modality.MaskKey(), mask},
		{modality.SegmentIDsKey(), segmentIDs},
	} {
		if f.t == nil {
			return nil, fmt.Errorf("missing feature %q", f.key)
		}

		if f.t.DType() != ml.DTypeI32 || !slices.Equal(f.t.Shape(), []int{batch, seqLen}) {
			return nil, fmt.Errorf("%s must be i32 %v, got %v %v", f.key, []int{batch, seqLen}, f.t.DType(), f.t.Shape())
		}
	}

	sep, err := m.sep.Repeat(0, batch)
	if err != nil {
		return nil, err
	}

	embedding, err := projected.Concat(sep, 1)
	if err != nil {
		return nil, err
	}

	// the separator takes the segment id and mask of the sequence it closes
	segmentIDs, err = appendFirst(segmentIDs)
	if err != nil {
		return nil, err
	}

	mask, err = appendFirst(mask)
	if err != nil {
		return nil, err
	}

	return &block{embedding: embedding, segmentIDs: segmentIDs, mask: mask}, nil
}

// appendFirst extends a [batch, seq] tensor to [batch, seq+1] by repeating
// its first column.
func appendFirst(t *ml.Tensor) (*ml.Tensor, error) {
	first, err := t.Narrow(1, 0, 1)
	if err != nil {
		return nil, err
	}

	return t.Concat(first, 1)
}
