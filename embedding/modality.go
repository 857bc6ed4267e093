package embedding

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/emirpasic/gods/v2/maps/linkedhashmap"
	"github.com/emirpasic/gods/v2/maps/treemap"
	"github.com/mitchellh/mapstructure"

	"github.com/jmorganca/modalfusion/types/errtypes"
)

type Type int

const (
	TypeText Type = iota
	TypeArray
	TypeCategory
)

func (t Type) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeArray:
		return "array"
	case TypeCategory:
		return "category"
	default:
		return "unknown"
	}
}

func ParseType(s string) (Type, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return TypeText, true
	case "array":
		return TypeArray, true
	case "category":
		return TypeCategory, true
	default:
		return 0, false
	}
}

const (
	modalTypeSuffix = "_modal_type"
	modalInfoSuffix = "_modal_info"
)

// Modality is one declared input modality.
type Modality struct {
	Name string
	Type Type

	// Size is the vocabulary size of a category modality or the feature
	// width of an array modality. It is zero for text, and for array
	// modalities whose width is left to the first batch.
	Size int
}

func (m Modality) InputIDsKey() string   { return m.Name + "_input_ids" }
func (m Modality) MaskKey() string       { return m.Name + "_mask" }
func (m Modality) SegmentIDsKey() string { return m.Name + "_segment_ids" }

// declaredModalities reads every {name}_modal_type key from info in
// declaration order.
func declaredModalities(info *linkedhashmap.Map[string, any]) ([]Modality, error) {
	var modalities []Modality
	for _, k := range info.Keys() {
		name, ok := strings.CutSuffix(k, modalTypeSuffix)
		if !ok {
			continue
		}

		v, _ := info.Get(k)
		s, _ := v.(string)
		typ, ok := ParseType(s)
		if !ok {
			return nil, &errtypes.InvalidModalTypeError{Modality: name, Type: fmt.Sprint(v)}
		}

		m := Modality{Name: name, Type: typ}

		infoKey := name + modalInfoSuffix
		size, hasSize := info.Get(infoKey)
		switch typ {
		case TypeCategory:
			if !hasSize {
				return nil, &errtypes.MissingModalInfoError{Modality: name, Key: infoKey, Keys: info.Keys()}
			}
			fallthrough
		case TypeArray:
			if hasSize {
				if err := mapstructure.WeakDecode(size, &m.Size); err != nil {
					return nil, fmt.Errorf("%s: %w", infoKey, err)
				}

				if m.Size <= 0 {
					return nil, fmt.Errorf("%s must be positive, got %v", infoKey, size)
				}
			}
		}

		modalities = append(modalities, m)
	}

	if len(modalities) == 0 {
		return nil, &errtypes.EmptyModalitiesError{}
	}

	return modalities, nil
}

// fusionOrder places text modalities first and keeps declaration order
// among the rest, so text occupies the front of the sequence as it did
// before other modalities were supported.
func fusionOrder(modalities []Modality) []Modality {
	ordered := slices.Clone(modalities)
	slices.SortStableFunc(ordered, func(a, b Modality) int {
		return cmp.Compare(rank(a.Type), rank(b.Type))
	})

	return ordered
}

func rank(t Type) int {
	if t == TypeText {
		return 0
	}

	return 1
}

// typeIDs assigns dense ids to modality names in lexicographic order.
func typeIDs(modalities []Modality) map[string]int {
	sorted := treemap.New[string, Type]()
	for _, m := range modalities {
		sorted.Put(m.Name, m.Type)
	}

	ids := make(map[string]int, sorted.Size())
	for i, name := range sorted.Keys() {
		ids[name] = i
	}

	return ids
}
