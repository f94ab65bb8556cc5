package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Plan is an ordered install plan: dependencies come before their
// dependents.
type Plan struct {
	// Components are the manifests to install, in order.
	Components []*Manifest `json:"components" yaml:"Components"`
	// Runtime is the union of module paths the plan needs.
	Runtime []string `json:"runtime,omitempty" yaml:"Runtime,omitempty"`
	// MissingEnv lists required environment variables not currently set.
	MissingEnv []EnvVar `json:"missingEnv,omitempty" yaml:"MissingEnv,omitempty"`
}

// Names returns the ordered component names of the plan.
func (p *Plan) Names() []string {
	out := make([]string, 0, len(p.Components))
	for _, m := range p.Components {
		out = append(out, m.Name)
	}
	return out
}

// EnvTemplate renders an env-file template for every variable the plan
// reads. Required unset variables get an empty value to fill in,
// already-set and optional ones are commented out.
func (p *Plan) EnvTemplate() string {
	seen := map[string]bool{}
	var sb strings.Builder
	for _, m := range p.Components {
		for _, ev := range m.Env {
			if seen[ev.Name] {
				continue
			}
			seen[ev.Name] = true
			if ev.Description != "" {
				fmt.Fprintf(&sb, "# %s\n", ev.Description)
			}
			switch {
			case ev.Required && os.Getenv(ev.Name) == "":
				fmt.Fprintf(&sb, "%s=\n", ev.Name)
			case ev.Secret:
				fmt.Fprintf(&sb, "# %s=<secret>\n", ev.Name)
			default:
				fmt.Fprintf(&sb, "# %s=%s\n", ev.Name, os.Getenv(ev.Name))
			}
		}
	}
	return sb.String()
}

// PlanInstall resolves the named components and their transitive
// catalog dependencies into an ordered plan. A dependency cycle or an
// unknown component is an error.
func (c *Catalog) PlanInstall(names ...string) (*Plan, error) {
	if len(names) == 0 {
		return nil, errors.New("no components requested")
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := map[string]int{}
	var ordered []*Manifest

	var visit func(name string, chain []string) error
	visit = func(name string, chain []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return errors.Newf("dependency cycle: %s", strings.Join(append(chain, name), " -> "))
		}
		m, err := c.Get(name)
		if err != nil {
			return err
		}
		state[name] = visiting
		for _, dep := range m.Requires {
			if err := visit(dep, append(chain, name)); err != nil {
				return err
			}
		}
		state[name] = done
		ordered = append(ordered, m)
		return nil
	}

	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}

	plan := &Plan{Components: ordered}

	runtime := map[string]bool{}
	envSeen := map[string]bool{}
	for _, m := range ordered {
		for _, dep := range m.Runtime {
			runtime[dep] = true
		}
		for _, ev := range m.Env {
			if !ev.Required || envSeen[ev.Name] {
				continue
			}
			envSeen[ev.Name] = true
			if os.Getenv(ev.Name) == "" {
				plan.MissingEnv = append(plan.MissingEnv, ev)
			}
		}
	}
	for dep := range runtime {
		plan.Runtime = append(plan.Runtime, dep)
	}
	sort.Strings(plan.Runtime)
	sort.Slice(plan.MissingEnv, func(i, j int) bool {
		return plan.MissingEnv[i].Name < plan.MissingEnv[j].Name
	})

	return plan, nil
}
