// Package params holds the configuration consumed by the multimodal
// embedding layers.
package params

import (
	"fmt"
	"os"

	"github.com/emirpasic/gods/v2/maps/linkedhashmap"
	"gopkg.in/yaml.v3"
)

type Params struct {
	// ProblemInfo carries per-problem metadata, including the
	// {modality}_modal_type and {modality}_modal_info declarations.
	ProblemInfo *ProblemInfo `yaml:"problem_info"`

	EnableModalType bool    `yaml:"enable_modal_type"`
	Dropout         float32 `yaml:"dropout"`

	// DuplicateDataAugProblems names the problems whose loss multiplier is
	// kept on the duplicated half of an augmented batch.
	DuplicateDataAugProblems Problems `yaml:"duplicate_data_aug_problems"`

	// EmbeddingLayer selects the embedding layer implementation by name.
	EmbeddingLayer string `yaml:"embedding_layer"`
}

func Default() *Params {
	return &Params{
		ProblemInfo:    NewProblemInfo(),
		Dropout:        0.1,
		EmbeddingLayer: "default",
	}
}

// Parse decodes YAML (or JSON) into a Params starting from Default.
func Parse(b []byte) (*Params, error) {
	p := Default()
	if err := yaml.Unmarshal(b, p); err != nil {
		return nil, err
	}

	if p.ProblemInfo == nil {
		p.ProblemInfo = NewProblemInfo()
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

func Load(path string) (*Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	p, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("error parsing params file %s: %w", path, err)
	}

	return p, nil
}

func (p *Params) Validate() error {
	if p.Dropout < 0 || p.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1), got %v", p.Dropout)
	}

	return nil
}

// ModalInfo merges every problem's metadata into one ordered map. Problems
// are visited in declaration order; a key declared again keeps its first
// position but takes the later value.
func (p *Params) ModalInfo() *linkedhashmap.Map[string, any] {
	merged := linkedhashmap.New[string, any]()
	if p.ProblemInfo == nil {
		return merged
	}

	for _, problem := range p.ProblemInfo.Problems() {
		info, _ := p.ProblemInfo.Get(problem)
		for _, k := range info.Keys() {
			v, _ := info.Get(k)
			merged.Put(k, v)
		}
	}

	return merged
}

// Problems is a list of problem names. In YAML it may be written as a
// single scalar or as a sequence.
type Problems []string

func (p *Problems) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}

		if s == "" {
			*p = nil
		} else {
			*p = Problems{s}
		}

		return nil
	case yaml.SequenceNode:
		var s []string
		if err := node.Decode(&s); err != nil {
			return err
		}

		*p = s
		return nil
	default:
		return fmt.Errorf("line %d: expected a problem name or a list of problem names", node.Line)
	}
}
