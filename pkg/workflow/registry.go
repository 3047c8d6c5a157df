package workflow

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed definitions/*.yaml
var builtinDefinitions embed.FS

// Registry holds immutable workflow definitions. Build it once and share it.
type Registry struct {
	definitions map[string]*Definition
}

// NewRegistry builds a registry from already-parsed definitions and validates them.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{definitions: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("workflow definition without id")
		}
		if _, dup := r.definitions[d.ID]; dup {
			return nil, fmt.Errorf("duplicate workflow %s", d.ID)
		}
		if err := d.compile(); err != nil {
			return nil, err
		}
		r.definitions[d.ID] = d
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadBuiltin loads the definitions shipped with the binary.
func LoadBuiltin() (*Registry, error) {
	return loadFS(builtinDefinitions, "definitions")
}

// LoadDir loads every *.yaml file from dir, falling back to the built-in set when dir is empty.
func LoadDir(dir string) (*Registry, error) {
	if dir == "" {
		return LoadBuiltin()
	}
	return loadFS(os.DirFS(dir), ".")
}

func loadFS(fsys fs.FS, root string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("read workflow definitions: %w", err)
	}

	var defs []*Definition
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		def, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		defs = append(defs, def)
	}
	return NewRegistry(defs...)
}

func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

func (r *Registry) Get(id string) (*Definition, bool) {
	d, ok := r.definitions[id]
	return d, ok
}

func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.definitions))
	for id := range r.definitions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks that every referenced step exists and that following default
// next-steps from the first step reaches an end without looping.
func (r *Registry) Validate() error {
	for _, id := range r.IDs() {
		d := r.definitions[id]
		if len(d.Steps) == 0 {
			return fmt.Errorf("workflow %s has no steps", id)
		}
		if d.index == nil {
			if err := d.compile(); err != nil {
				return err
			}
		}
		for _, s := range d.Steps {
			refs := []string{s.Next}
			for _, o := range s.Options {
				refs = append(refs, o.Next)
			}
			for _, c := range s.Conditions {
				if c.Action == ActionBranch {
					if c.Target == "" {
						return fmt.Errorf("workflow %s: step %s has a branch condition without target", id, s.ID)
					}
					refs = append(refs, c.Target)
				}
			}
			for _, ref := range refs {
				if ref == "" {
					continue
				}
				if _, ok := d.Step(ref); !ok {
					return fmt.Errorf("workflow %s: step %s references unknown step %s", id, s.ID, ref)
				}
			}
		}
		if _, err := DefaultPath(d); err != nil {
			return err
		}
	}
	return nil
}

// DefaultPath follows default next-steps from the first step until a completion step
// or a step without a default. It fails on a cycle.
func DefaultPath(d *Definition) ([]string, error) {
	seen := make(map[string]bool, len(d.Steps))
	var chain []string
	step := d.First()
	for step != nil {
		if seen[step.ID] {
			return nil, fmt.Errorf("workflow %s: default chain loops at step %s", d.ID, step.ID)
		}
		seen[step.ID] = true
		chain = append(chain, step.ID)
		if step.Type == StepCompletion || step.Next == "" {
			return chain, nil
		}
		next, ok := d.Step(step.Next)
		if !ok {
			return nil, fmt.Errorf("workflow %s: step %s references unknown step %s", d.ID, step.ID, step.Next)
		}
		step = next
	}
	return chain, nil
}
