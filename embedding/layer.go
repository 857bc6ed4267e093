// Package embedding builds the fused multimodal input sequence fed to a
// transformer encoder.
package embedding

import (
	"fmt"

	"github.com/jmorganca/modalfusion/ml"
	"github.com/jmorganca/modalfusion/params"
)

// Layer turns a feature bundle into a fused sequence embedding. It returns
// the bundle the fusion ran over alongside the result.
type Layer interface {
	Forward(features Features, training bool) (Features, *Hidden, error)
}

// TokenEmbedder is the shared text token embedding table.
type TokenEmbedder interface {
	Forward(ids *ml.Tensor) (*ml.Tensor, error)
	// Dim is the width of the table, which every modality projects into.
	Dim() int
}

// WeightSource supplies pre-trained weights by name. Get returns nil for
// unknown names.
type WeightSource interface {
	Get(name string) *ml.Tensor
}

// Weights is a WeightSource backed by a map.
type Weights map[string]*ml.Tensor

func (w Weights) Get(name string) *ml.Tensor {
	return w[name]
}

type Options struct {
	// Seed drives weight initialization and dropout. Zero picks a random seed.
	Seed uint64

	// Weights, if set, overrides initialized weights.
	Weights WeightSource
}

var layers = make(map[string]func(*params.Params, TokenEmbedder, Options) (Layer, error))

// Register registers a layer constructor under one or more names
func Register(f func(*params.Params, TokenEmbedder, Options) (Layer, error), names ...string) {
	for _, name := range names {
		if _, ok := layers[name]; ok {
			panic("embedding: layer already registered")
		}

		layers[name] = f
	}
}

func init() {
	Register(func(p *params.Params, tok TokenEmbedder, opts Options) (Layer, error) {
		return NewMultimodal(p, tok, opts)
	}, "default", "DefaultMultimodalEmbedding")

	Register(func(p *params.Params, tok TokenEmbedder, opts Options) (Layer, error) {
		return NewDuplicateAug(p, tok, opts)
	}, "duplicate_data_aug", "DuplicateAugMultimodalEmbedding")
}

// New builds the layer named by p.EmbeddingLayer.
func New(p *params.Params, tok TokenEmbedder, opts Options) (Layer, error) {
	name := p.EmbeddingLayer
	if name == "" {
		name = "default"
	}

	f, ok := layers[name]
	if !ok {
		return nil, fmt.Errorf("unsupported embedding layer %q", name)
	}

	return f(p, tok, opts)
}
