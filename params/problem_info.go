package params

import (
	"fmt"

	"github.com/emirpasic/gods/v2/maps/linkedhashmap"
	"gopkg.in/yaml.v3"
)

// ProblemInfo maps problem names to their metadata, preserving declaration
// order at both levels.
type ProblemInfo struct {
	problems *linkedhashmap.Map[string, *linkedhashmap.Map[string, any]]
}

func NewProblemInfo() *ProblemInfo {
	return &ProblemInfo{problems: linkedhashmap.New[string, *linkedhashmap.Map[string, any]]()}
}

// Set records key=value in the metadata of problem, creating the problem if
// it has not been seen.
func (p *ProblemInfo) Set(problem, key string, value any) {
	info, ok := p.problems.Get(problem)
	if !ok {
		info = linkedhashmap.New[string, any]()
		p.problems.Put(problem, info)
	}

	info.Put(key, value)
}

func (p *ProblemInfo) Get(problem string) (*linkedhashmap.Map[string, any], bool) {
	return p.problems.Get(problem)
}

func (p *ProblemInfo) Problems() []string {
	return p.problems.Keys()
}

func (p *ProblemInfo) Len() int {
	return p.problems.Size()
}

func (p *ProblemInfo) UnmarshalYAML(node *yaml.Node) error {
	if p.problems == nil {
		p.problems = linkedhashmap.New[string, *linkedhashmap.Map[string, any]]()
	}

	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}

	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: problem_info must be a mapping of problem names", node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		name, info := node.Content[i], node.Content[i+1]
		if info.Kind != yaml.MappingNode {
			return fmt.Errorf("line %d: problem %q must be a mapping", info.Line, name.Value)
		}

		if _, ok := p.problems.Get(name.Value); !ok {
			p.problems.Put(name.Value, linkedhashmap.New[string, any]())
		}

		for j := 0; j+1 < len(info.Content); j += 2 {
			var v any
			if err := info.Content[j+1].Decode(&v); err != nil {
				return fmt.Errorf("problem %q key %q: %w", name.Value, info.Content[j].Value, err)
			}

			p.Set(name.Value, info.Content[j].Value, v)
		}
	}

	return nil
}
