package prompt

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk prompt definition format.
//
//	prompts:
//	  - name: chat
//	    model: gpt-4o
//	    messages:
//	      - role: system
//	        content: hello {{word}}
type File struct {
	Prompts []*Prompt `yaml:"prompts"`
}

// ParseFile reads and validates a prompt definition file without
// touching any registry. Every template is rendered once with no
// variables so syntax errors surface here.
func ParseFile(ctx context.Context, path string) ([]*Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	seen := make(map[string]bool, len(f.Prompts))
	for _, p := range f.Prompts {
		if p == nil {
			continue
		}
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%s: duplicate prompt %s", path, p.Name)
		}
		seen[p.Name] = true
		if _, err := p.Render(ctx, nil); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return f.Prompts, nil
}

// LoadFile replaces the registry contents with the prompts in path.
// On error the current table is kept.
func (r *Registry) LoadFile(ctx context.Context, path string) error {
	prompts, err := ParseFile(ctx, path)
	if err != nil {
		return err
	}
	valid := prompts[:0]
	for _, p := range prompts {
		if p != nil {
			valid = append(valid, p)
		}
	}
	r.replace(valid)
	return nil
}
