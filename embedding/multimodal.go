package embedding

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/jmorganca/modalfusion/ml"
	"github.com/jmorganca/modalfusion/ml/nn"
	"github.com/jmorganca/modalfusion/params"
)

const (
	sepEmbeddingName       = "modal_sep_embedding"
	modalTypeEmbeddingName = "modal_type_embedding"
	categoryEmbeddingName  = "cate_embedding"
	multimodalDenseName    = "multimodal_dense"
)

// Multimodal holds the modality registry and one projector per modality.
// Its weights are read-only during Forward.
type Multimodal struct {
	tokens TokenEmbedder
	dim    int

	modalities []Modality
	ordered    []Modality
	typeIDs    map[string]int

	categories map[string]*nn.Embedding

	// mu guards dense and rng; array projections whose input width is not
	// declared are created on first use.
	mu    sync.Mutex
	dense map[string]*nn.Linear
	rng   *rand.Rand

	weights WeightSource

	sep *ml.Tensor

	enableModalType bool
	modalType       *nn.Embedding

	dropout *nn.Dropout

	warnArray sync.Once
}

// NewMultimodal builds the modality registry and projector bank from the
// problem metadata in p. The embedding width is taken from tok.
func NewMultimodal(p *params.Params, tok TokenEmbedder, opts Options) (*Multimodal, error) {
	if tok == nil {
		return nil, fmt.Errorf("a token embedding table is required")
	}

	modalities, err := declaredModalities(p.ModalInfo())
	if err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	m := Multimodal{
		tokens:          tok,
		dim:             tok.Dim(),
		modalities:      modalities,
		ordered:         fusionOrder(modalities),
		typeIDs:         typeIDs(modalities),
		categories:      make(map[string]*nn.Embedding),
		dense:           make(map[string]*nn.Linear),
		rng:             rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		weights:         opts.Weights,
		enableModalType: p.EnableModalType,
	}

	mapping, err := json.MarshalIndent(m.typeIDs, "", "    ")
	if err != nil {
		return nil, err
	}
	slog.Info("modal type id mapping", "mapping", string(mapping))

	for _, modality := range m.modalities {
		switch modality.Type {
		case TypeCategory:
			name := categoryEmbeddingName + "." + modality.Name + ".weight"
			w, err := m.weight(name, func() (*ml.Tensor, error) {
				return nn.Uniform(m.rng, 0.05, modality.Size, m.dim)
			}, modality.Size, m.dim)
			if err != nil {
				return nil, err
			}

			m.categories[modality.Name] = &nn.Embedding{Weight: w}
		case TypeArray:
			if modality.Size > 0 || m.hasDenseWeights(modality) {
				if _, err := m.newDense(modality, modality.Size); err != nil {
					return nil, err
				}
			}
		}
	}

	if m.enableModalType {
		if len(m.modalities) == 1 {
			slog.Warn("enable_modal_type is set with a single modality; the modal type embedding will receive no gradient", "modality", m.modalities[0].Name)
		}

		// one spare row beyond the declared modalities
		rows := len(m.modalities) + 1
		w, err := m.weight(modalTypeEmbeddingName+".weight", func() (*ml.Tensor, error) {
			return nn.Uniform(m.rng, 0.05, rows, m.dim)
		}, rows, m.dim)
		if err != nil {
			return nil, err
		}

		m.modalType = &nn.Embedding{Weight: w}
	}

	m.sep, err = m.weight(sepEmbeddingName, func() (*ml.Tensor, error) {
		return nn.GlorotUniform(m.rng, 1, 1, m.dim)
	}, 1, 1, m.dim)
	if err != nil {
		return nil, err
	}

	m.dropout, err = nn.NewDropout(p.Dropout, m.rng.Uint64()|1)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// Dim is the width every modality is projected to.
func (m *Multimodal) Dim() int {
	return m.dim
}

// Modalities returns the modalities in fusion order.
func (m *Multimodal) Modalities() []Modality {
	return slices.Clone(m.ordered)
}

// TypeID returns the modality type id assigned to name.
func (m *Multimodal) TypeID(name string) (int, bool) {
	id, ok := m.typeIDs[name]
	return id, ok
}

// weight returns the named tensor from the weight source if present, or
// the result of init otherwise. Loaded weights must match shape.
func (m *Multimodal) weight(name string, init func() (*ml.Tensor, error), shape ...int) (*ml.Tensor, error) {
	if m.weights != nil {
		if t := m.weights.Get(name); t != nil {
			if !slices.Equal(t.Shape(), shape) {
				return nil, fmt.Errorf("weight %s: %w: want %v, got %v", name, ml.ErrShape, shape, t.Shape())
			}

			if t.DType() != ml.DTypeF32 {
				return nil, fmt.Errorf("weight %s: want f32, got %v", name, t.DType())
			}

			slog.Debug("loaded weight", "name", name, "shape", shape)
			return t, nil
		}
	}

	return init()
}

func (m *Multimodal) hasDenseWeights(modality Modality) bool {
	return m.weights != nil && m.weights.Get(multimodalDenseName+"."+modality.Name+".weight") != nil
}

// newDense creates the array projection for modality. An input width of
// zero is taken from loaded weights. The caller must hold mu or be the
// constructor.
func (m *Multimodal) newDense(modality Modality, in int) (*nn.Linear, error) {
	prefix := multimodalDenseName + "." + modality.Name
	if in == 0 {
		in = m.weights.Get(prefix + ".weight").Dim(0)
	}

	w, err := m.weight(prefix+".weight", func() (*ml.Tensor, error) {
		return nn.GlorotUniform(m.rng, in, m.dim)
	}, in, m.dim)
	if err != nil {
		return nil, err
	}

	b, err := m.weight(prefix+".bias", func() (*ml.Tensor, error) {
		return ml.Zeros(ml.DTypeF32, m.dim), nil
	}, m.dim)
	if err != nil {
		return nil, err
	}

	linear := &nn.Linear{Weight: w, Bias: b}
	m.dense[modality.Name] = linear
	return linear, nil
}

// projection returns the array projection for modality, creating it from
// the width of x if this is the first time the modality is seen.
func (m *Multimodal) projection(modality Modality, x *ml.Tensor) (*nn.Linear, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if linear, ok := m.dense[modality.Name]; ok {
		return linear, nil
	}

	return m.newDense(modality, x.Dim(x.Rank()-1))
}
