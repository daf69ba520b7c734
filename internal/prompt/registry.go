// Package prompt resolves named prompt templates into chat turns.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/opencode-ai/copilot/pkg/types"
)

// ErrPromptNotFound is returned when a prompt name is not registered.
var ErrPromptNotFound = errors.New("prompt not found")

// Prompt is a named, ordered list of turns. Turn content may contain
// {{variable}} placeholders filled in at resolve time.
type Prompt struct {
	Name  string       `json:"name" yaml:"name"`
	Model string       `json:"model,omitempty" yaml:"model,omitempty"`
	Turns []types.Turn `json:"messages" yaml:"messages"`
}

// template builds the eino chat template for the prompt's turns.
func (p *Prompt) template() einoprompt.ChatTemplate {
	msgs := make([]schema.MessagesTemplate, 0, len(p.Turns))
	for _, turn := range p.Turns {
		msgs = append(msgs, &schema.Message{
			Role:    schema.RoleType(turn.Role),
			Content: turn.Content,
		})
	}
	return einoprompt.FromMessages(schema.Jinja2, msgs...)
}

// Render fills the placeholders of every turn with vars.
func (p *Prompt) Render(ctx context.Context, vars map[string]string) ([]*schema.Message, error) {
	values := make(map[string]any, len(vars))
	for k, v := range vars {
		values[k] = v
	}
	msgs, err := p.template().Format(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("render prompt %s: %w", p.Name, err)
	}
	return msgs, nil
}

func (p *Prompt) validate() error {
	if p.Name == "" {
		return errors.New("prompt name is required")
	}
	for i, turn := range p.Turns {
		if !turn.Role.Valid() {
			return fmt.Errorf("prompt %s: turn %d has invalid role %q", p.Name, i, turn.Role)
		}
	}
	return nil
}

// Registry holds the prompt table. It is read-mostly and safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	prompts map[string]*Prompt
}

// NewRegistry creates an empty prompt registry.
func NewRegistry() *Registry {
	return &Registry{prompts: make(map[string]*Prompt)}
}

// Set adds or replaces a prompt.
func (r *Registry) Set(name, model string, turns []types.Turn) error {
	p := &Prompt{Name: name, Model: model, Turns: append([]types.Turn(nil), turns...)}
	if err := p.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts[name] = p
	return nil
}

// Get retrieves a prompt by name.
func (r *Registry) Get(name string) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.prompts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPromptNotFound, name)
	}
	return p, nil
}

// Has reports whether a prompt is registered.
func (r *Registry) Has(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

// Delete removes a prompt. Deleting an unknown name is a no-op.
func (r *Registry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.prompts, name)
}

// List returns the registered prompt names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.prompts))
	for name := range r.prompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve renders the named prompt with vars.
func (r *Registry) Resolve(ctx context.Context, name string, vars map[string]string) ([]*schema.Message, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return p.Render(ctx, vars)
}

// replace swaps the whole table at once.
func (r *Registry) replace(prompts []*Prompt) {
	table := make(map[string]*Prompt, len(prompts))
	for _, p := range prompts {
		table[p.Name] = p
	}

	r.mu.Lock()
	r.prompts = table
	r.mu.Unlock()
}
