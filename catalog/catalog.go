package catalog

import (
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agenthub", "catalog")

// Catalog is an in-memory index of loaded manifests.
type Catalog struct {
	byName map[string]*Manifest
	byTag  map[string][]*Manifest
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		byName: make(map[string]*Manifest),
		byTag:  make(map[string][]*Manifest),
	}
}

// Load walks the tree and loads every .json and .md manifest.
// A duplicate component name is an error.
func Load(fsys fs.FS) (*Catalog, error) {
	cat := New()
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		var m *Manifest
		switch strings.ToLower(path.Ext(p)) {
		case ".json":
			data, err := fs.ReadFile(fsys, p)
			if err != nil {
				return errors.Wrapf(err, "failed to read: %s", p)
			}
			m, err = ParseJSON(data)
			if err != nil {
				return errors.WithMessagef(err, "file %s", p)
			}
		case ".md":
			data, err := fs.ReadFile(fsys, p)
			if err != nil {
				return errors.Wrapf(err, "failed to read: %s", p)
			}
			m, err = ParseMarkdown(data)
			if err != nil {
				return errors.WithMessagef(err, "file %s", p)
			}
		default:
			return nil
		}

		if err := cat.Add(m); err != nil {
			return errors.WithMessagef(err, "file %s", p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.KV(xlog.DEBUG, "loaded_components", cat.Len())
	return cat, nil
}

// Add validates the manifest and indexes it.
func (c *Catalog) Add(m *Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if _, ok := c.byName[m.Name]; ok {
		return errors.Newf("duplicate component: %s", m.Name)
	}
	c.byName[m.Name] = m
	for _, tag := range m.Tags {
		tag = strings.ToLower(tag)
		c.byTag[tag] = append(c.byTag[tag], m)
	}
	return nil
}

// Len returns the number of loaded components.
func (c *Catalog) Len() int {
	return len(c.byName)
}

// Get returns the manifest by name.
func (c *Catalog) Get(name string) (*Manifest, error) {
	m, ok := c.byName[name]
	if !ok {
		return nil, errors.Newf("component not found: %s", name)
	}
	return m, nil
}

// List returns all manifests sorted by name.
func (c *Catalog) List() []*Manifest {
	out := make([]*Manifest, 0, len(c.byName))
	for _, m := range c.byName {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// ByTag returns the manifests carrying the tag, sorted by name.
func (c *Catalog) ByTag(tag string) []*Manifest {
	out := append([]*Manifest(nil), c.byTag[strings.ToLower(tag)]...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Search returns manifests whose name, description, or tags contain
// the term, case-insensitive, sorted by name.
func (c *Catalog) Search(term string) []*Manifest {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}

	var out []*Manifest
	for _, m := range c.byName {
		if strings.Contains(strings.ToLower(m.Name), term) ||
			strings.Contains(strings.ToLower(m.Description), term) {
			out = append(out, m)
			continue
		}
		for _, tag := range m.Tags {
			if strings.Contains(strings.ToLower(tag), term) {
				out = append(out, m)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}
