// Package blocks is the catalogue of block types a dashboard can hold. Each
// type pairs a Display, which turns stored settings into a metric View, with
// a Setup, which validates and trims the settings submitted when the block is
// added.
package blocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownBlockType = errors.New("unknown block type")
	ErrInvalidSettings  = errors.New("invalid block settings")
)

// View is what a block shows: a titled number with a unit and optional badges.
type View struct {
	Title  string   `json:"title"`
	Value  int64    `json:"value"`
	Unit   string   `json:"unit"`
	Badges []string `json:"badges"`
}

type RenderRequest struct {
	Settings json.RawMessage
	// GitHubToken is the viewer's stored access token. Empty for blocks that
	// do not need one.
	GitHubToken string
	// Preview renders a placeholder without calling any upstream API.
	Preview bool
}

type Display interface {
	Render(ctx context.Context, req RenderRequest) (*View, error)
}

// Field describes one input of a setup form.
type Field struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Kind     string `json:"kind"`
	Required bool   `json:"required"`
}

type Setup interface {
	// Normalize validates raw settings and returns only the keys the block uses.
	Normalize(raw json.RawMessage) (json.RawMessage, error)
	Fields() []Field
}

type Definition struct {
	Type        string
	Name        string
	Description string
	Display     Display
	Setup       Setup
	// RequiresGitHub is set when rendering needs the viewer's GitHub access.
	RequiresGitHub bool
}

type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry panics on duplicate or empty types; the table is static.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		if def.Type == "" {
			panic("blocks: definition without type")
		}
		if _, dup := r.defs[def.Type]; dup {
			panic("blocks: duplicate type " + def.Type)
		}
		r.defs[def.Type] = def
		r.order = append(r.order, def.Type)
	}
	return r
}

func (r *Registry) Resolve(blockType string) (Definition, error) {
	def, ok := r.defs[blockType]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownBlockType, blockType)
	}
	return def, nil
}

// List returns definitions in registration order.
func (r *Registry) List() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.defs[t])
	}
	return out
}
