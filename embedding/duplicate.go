package embedding

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/jmorganca/modalfusion/params"
)

const LossMultiplierSuffix = "_loss_multiplier"

// DuplicateAug doubles every batch before fusion, for in-batch
// augmentation such as SimCSE. Loss multipliers of problems not listed in
// duplicate_data_aug_problems are zeroed on the duplicated half.
type DuplicateAug struct {
	*Multimodal

	problems []string
	warn     sync.Once
}

func NewDuplicateAug(p *params.Params, tok TokenEmbedder, opts Options) (*DuplicateAug, error) {
	m, err := NewMultimodal(p, tok, opts)
	if err != nil {
		return nil, err
	}

	return &DuplicateAug{Multimodal: m, problems: slices.Clone(p.DuplicateDataAugProblems)}, nil
}

// Forward returns the duplicated bundle and the fused output over the
// doubled batch. Without any augmentation problems it behaves exactly like
// Multimodal.Forward.
func (d *DuplicateAug) Forward(features Features, training bool) (Features, *Hidden, error) {
	if len(d.problems) == 0 {
		d.warn.Do(func() {
			slog.Warn("duplicate data augmentation is selected but duplicate_data_aug_problems is not set; augmentation is disabled")
		})
		return d.Multimodal.Forward(features, training)
	}

	duplicated, err := Duplicate(features, d.problems)
	if err != nil {
		return nil, nil, err
	}

	hidden, err := d.fuse(duplicated, training)
	if err != nil {
		return nil, nil, err
	}

	return duplicated, hidden, nil
}

// Duplicate concatenates every tensor in features with itself along the
// batch axis. Loss multipliers of problems not in keep are concatenated
// with zeros instead so the copies do not count towards those losses.
func Duplicate(features Features, keep []string) (Features, error) {
	duplicated := make(Features, len(features))
	for name, t := range features {
		if t == nil {
			duplicated[name] = nil
			continue
		}

		second := t
		if problem, ok := strings.CutSuffix(name, LossMultiplierSuffix); ok && !slices.Contains(keep, problem) {
			second = t.ZerosLike()
		}

		out, err := t.Concat(second, 0)
		if err != nil {
			return nil, fmt.Errorf("duplicate %s: %w", name, err)
		}

		duplicated[name] = out
	}

	return duplicated, nil
}
