// Package dnd5e provides a lookup tool for the D&D 5th Edition API.
package dnd5e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/llmutils"
	"github.com/effective-security/agenthub/schema"
	"github.com/effective-security/agenthub/tools"
)

const ToolName = "DnD5eLookup"

// DefaultBaseURL is the public D&D 5e API endpoint.
const DefaultBaseURL = "https://www.dnd5eapi.co"

// Resources supported by the lookup tool.
var supportedResources = []string{
	"spells", "monsters", "equipment", "classes", "races",
	"magic-items", "features", "conditions", "skills",
}

// LookupRequest represents the tool input.
type LookupRequest struct {
	Resource string `json:"Resource" yaml:"Resource" jsonschema:"title=Resource,description=The resource category to look up,enum=spells,enum=monsters,enum=equipment,enum=classes,enum=races,enum=magic-items,enum=features,enum=conditions,enum=skills"`
	Name     string `json:"Name,omitempty" yaml:"Name,omitempty" jsonschema:"title=Name,description=The name of the entry to look up. When empty the tool lists the available entries."`
}

// Ref is a reference to a single API entry.
type Ref struct {
	Index string `json:"index" yaml:"Index"`
	Name  string `json:"name" yaml:"Name"`
	URL   string `json:"url,omitempty" yaml:"URL,omitempty"`
}

// LookupResult represents the tool output. Entry holds the raw API
// object for a single lookup, Entries holds the list otherwise.
type LookupResult struct {
	Resource string          `json:"resource" yaml:"Resource" jsonschema:"title=resource,description=The resource category."`
	Entry    json.RawMessage `json:"entry,omitempty" yaml:"Entry,omitempty" jsonschema:"title=entry,description=The full entry object for a single lookup."`
	Entries  []Ref           `json:"entries,omitempty" yaml:"Entries,omitempty" jsonschema:"title=entries,description=The available entries when listing."`
}

func (r *LookupResult) GetContent() string {
	return llmutils.ToJSON(r)
}

type resourceList struct {
	Count   int   `json:"count"`
	Results []Ref `json:"results"`
}

// Tool looks up rules content from the D&D 5e API.
type Tool struct {
	funcParams any

	baseURL    string
	httpClient *http.Client
}

var _ tools.Tool[LookupRequest, LookupResult] = (*Tool)(nil)

// New creates the lookup tool. The API is public and needs no key.
func New() (*Tool, error) {
	sc, err := schema.New(reflect.TypeOf(LookupRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &Tool{
		funcParams: sc.Parameters,
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
	}, nil
}

func (t *Tool) WithBaseURL(baseURL string) *Tool {
	t.baseURL = baseURL
	return t
}

func (t *Tool) WithHTTPClient(client *http.Client) *Tool {
	t.httpClient = client
	return t
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "A tool that looks up D&D 5th Edition rules content: spells, monsters, equipment, classes and more."
}

func (t *Tool) Parameters() any {
	return t.funcParams
}

func (t *Tool) Run(ctx context.Context, req *LookupRequest) (*LookupResult, error) {
	resource := strings.ToLower(strings.TrimSpace(req.Resource))
	if !isSupportedResource(resource) {
		return nil, errors.Newf("unsupported resource: %q, supported: %s",
			req.Resource, strings.Join(supportedResources, ", "))
	}

	list, err := t.listResource(ctx, resource)
	if err != nil {
		return nil, err
	}

	if req.Name == "" {
		return &LookupResult{
			Resource: resource,
			Entries:  list.Results,
		}, nil
	}

	ref, err := resolveRef(list.Results, req.Name)
	if err != nil {
		return nil, errors.WithMessagef(err, "resource %s", resource)
	}

	entry, err := t.getJSON(ctx, "/api/"+resource+"/"+ref.Index)
	if err != nil {
		return nil, err
	}
	return &LookupResult{
		Resource: resource,
		Entry:    entry,
	}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	return tools.CallTyped[LookupRequest, LookupResult](ctx, t, input)
}

func (t *Tool) listResource(ctx context.Context, resource string) (*resourceList, error) {
	bs, err := t.getJSON(ctx, "/api/"+resource)
	if err != nil {
		return nil, err
	}
	var list resourceList
	if err := json.Unmarshal(bs, &list); err != nil {
		return nil, errors.Wrap(err, "failed to decode resource list")
	}
	return &list, nil
}

func (t *Tool) getJSON(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "request failed: %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("dnd5e API error: %s: %s", path, resp.Status)
	}

	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	return json.RawMessage(bs), nil
}

func isSupportedResource(resource string) bool {
	for _, r := range supportedResources {
		if r == resource {
			return true
		}
	}
	return false
}

// maxResolveDistance bounds how far a fuzzy match may drift from the input.
const maxResolveDistance = 3

// resolveRef finds the entry matching the given name. Exact index and
// exact name matches win, otherwise the closest entry by edit distance
// over the slugified name is used.
func resolveRef(refs []Ref, name string) (*Ref, error) {
	slug := Slugify(name)

	var best *Ref
	bestDist := maxResolveDistance + 1
	for i := range refs {
		ref := &refs[i]
		if ref.Index == slug || strings.EqualFold(ref.Name, name) {
			return ref, nil
		}
		dist := levenshtein.ComputeDistance(slug, ref.Index)
		if dist < bestDist {
			best = ref
			bestDist = dist
		}
	}
	if best == nil {
		return nil, errors.Newf("entry not found: %q", name)
	}
	return best, nil
}

// Slugify lowercases a name and joins the words with dashes,
// matching the API index format.
func Slugify(name string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	for i, f := range fields {
		fields[i] = strings.Map(func(r rune) rune {
			if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' {
				return r
			}
			return -1
		}, f)
	}
	return strings.Join(fields, "-")
}
