package catalog

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// LockFileName is the lockfile written next to the user's project.
const LockFileName = "agenthub.lock.json"

// LockedComponent is one entry of the lockfile.
type LockedComponent struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	InstalledAt string `json:"installedAt"`
}

// Lockfile records installed components. The raw JSON is kept so
// updates preserve unknown fields written by other versions.
type Lockfile struct {
	path string
	raw  string
}

// OpenLockfile reads the lockfile, or starts an empty one when the
// file does not exist.
func OpenLockfile(path string) (*Lockfile, error) {
	lf := &Lockfile{path: path, raw: "{}"}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return lf, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read lockfile: %s", path)
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.Newf("invalid lockfile: %s", path)
	}
	lf.raw = string(data)
	return lf, nil
}

// Get returns the locked entry for a component.
func (l *Lockfile) Get(name string) (*LockedComponent, bool) {
	entry := gjson.Get(l.raw, "components."+name)
	if !entry.Exists() {
		return nil, false
	}
	return &LockedComponent{
		Name:        name,
		Version:     entry.Get("version").String(),
		InstalledAt: entry.Get("installedAt").String(),
	}, true
}

// Names returns the locked component names.
func (l *Lockfile) Names() []string {
	var out []string
	gjson.Get(l.raw, "components").ForEach(func(key, _ gjson.Result) bool {
		out = append(out, key.String())
		return true
	})
	return out
}

// Set records a component at a version.
func (l *Lockfile) Set(m *Manifest, now time.Time) error {
	base := "components." + m.Name
	raw, err := sjson.Set(l.raw, base+".version", m.Version)
	if err != nil {
		return errors.Wrap(err, "failed to update lockfile")
	}
	raw, err = sjson.Set(raw, base+".installedAt", now.UTC().Format(time.RFC3339))
	if err != nil {
		return errors.Wrap(err, "failed to update lockfile")
	}
	l.raw = raw
	return nil
}

// Remove drops a component entry.
func (l *Lockfile) Remove(name string) error {
	raw, err := sjson.Delete(l.raw, "components."+name)
	if err != nil {
		return errors.Wrap(err, "failed to update lockfile")
	}
	l.raw = raw
	return nil
}

// Save writes the lockfile back to disk.
func (l *Lockfile) Save() error {
	pretty := gjson.Get(l.raw, "@pretty").Raw
	if err := os.WriteFile(l.path, []byte(pretty), 0644); err != nil {
		return errors.Wrapf(err, "failed to write lockfile: %s", l.path)
	}
	return nil
}
