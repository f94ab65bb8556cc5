package exa

import (
	"bytes"
	"context"
	"fmt"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/llmutils"
	"github.com/effective-security/agenthub/schema"
	"github.com/effective-security/agenthub/tools"
)

const (
	SearchToolName      = "ExaSearch"
	ContentsToolName    = "ExaContents"
	FindSimilarToolName = "ExaFindSimilar"
)

// SearchRequest represents the search tool input.
type SearchRequest struct {
	Query      string `json:"Query" yaml:"Query" jsonschema:"title=Query,description=The query to search the web."`
	Type       string `json:"Type,omitempty" yaml:"Type,omitempty" jsonschema:"title=Type,description=Search type: neural or keyword. Defaults to neural.,enum=neural,enum=keyword"`
	NumResults int    `json:"NumResults,omitempty" yaml:"NumResults,omitempty" jsonschema:"title=NumResults,description=The number of results to return. Defaults to 10."`
	Category   string `json:"Category,omitempty" yaml:"Category,omitempty" jsonschema:"title=Category,description=Optional category to focus the search on."`
}

// Result is a single search hit.
type Result struct {
	ID            string   `json:"id" yaml:"ID"`
	Title         string   `json:"title" yaml:"Title"`
	URL           string   `json:"url" yaml:"URL"`
	Score         float64  `json:"score,omitempty" yaml:"Score,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty" yaml:"PublishedDate,omitempty"`
	Author        string   `json:"author,omitempty" yaml:"Author,omitempty"`
	Text          string   `json:"text,omitempty" yaml:"Text,omitempty"`
	Highlights    []string `json:"highlights,omitempty" yaml:"Highlights,omitempty"`
}

// SearchResult represents the search tool output.
type SearchResult struct {
	Results            []Result `json:"results" yaml:"Results" jsonschema:"title=results,description=The results from a web search."`
	AutopromptString   string   `json:"autopromptString,omitempty" yaml:"AutopromptString,omitempty" jsonschema:"title=autopromptString,description=The query rewritten by autoprompt."`
	ResolvedSearchType string   `json:"resolvedSearchType,omitempty" yaml:"ResolvedSearchType,omitempty"`
}

func (r *SearchResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *SearchResult) String() string {
	var buf bytes.Buffer
	if r.AutopromptString != "" {
		fmt.Fprintf(&buf, "AUTOPROMPT: %s\n", r.AutopromptString)
	}
	for _, result := range r.Results {
		fmt.Fprintf(&buf, "- URL: %s\n", result.URL)
		fmt.Fprintf(&buf, "  TITLE: %s\n", result.Title)
		if result.Score > 0 {
			fmt.Fprintf(&buf, "  SCORE: %f\n", result.Score)
		}
		if result.Text != "" {
			fmt.Fprintf(&buf, "  TEXT: %s\n", result.Text)
		}
	}
	return buf.String()
}

// searchAPIRequest is the wire format of POST /search.
type searchAPIRequest struct {
	Query         string       `json:"query"`
	Type          string       `json:"type,omitempty"`
	UseAutoprompt bool         `json:"useAutoprompt,omitempty"`
	NumResults    int          `json:"numResults,omitempty"`
	Category      string       `json:"category,omitempty"`
	Contents      *contentsOpt `json:"contents,omitempty"`
}

type contentsOpt struct {
	Text bool `json:"text,omitempty"`
}

// SearchTool searches the web with the Exa neural or keyword index.
type SearchTool struct {
	client     *Client
	funcParams any
}

var _ tools.Tool[SearchRequest, SearchResult] = (*SearchTool)(nil)

// NewSearchTool creates the search tool. The API key is read from EXA_API_KEY.
func NewSearchTool() (*SearchTool, error) {
	client, err := NewClient()
	if err != nil {
		return nil, err
	}
	return NewSearchToolWithClient(client)
}

func NewSearchToolWithClient(client *Client) (*SearchTool, error) {
	sc, err := schema.New(reflect.TypeOf(SearchRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &SearchTool{
		client:     client,
		funcParams: sc.Parameters,
	}, nil
}

func (t *SearchTool) Name() string {
	return SearchToolName
}

func (t *SearchTool) Description() string {
	return "A tool that searches the web with a neural or keyword index and returns ranked results with content."
}

func (t *SearchTool) Parameters() any {
	return t.funcParams
}

func (t *SearchTool) Run(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req.Query == "" {
		return nil, errors.New("invalid request: empty query")
	}

	apiReq := searchAPIRequest{
		Query:      req.Query,
		Type:       req.Type,
		NumResults: req.NumResults,
		Category:   req.Category,
		Contents:   &contentsOpt{Text: true},
	}
	// Autoprompt only applies to the neural index.
	if req.Type == "" || req.Type == "neural" {
		apiReq.UseAutoprompt = true
	}

	var res SearchResult
	if err := t.client.post(ctx, "/search", apiReq, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (t *SearchTool) Call(ctx context.Context, input string) (string, error) {
	return tools.CallTyped[SearchRequest, SearchResult](ctx, t, input)
}

// ContentsRequest represents the contents tool input.
type ContentsRequest struct {
	IDs []string `json:"IDs" yaml:"IDs" jsonschema:"title=IDs,description=The document IDs or URLs returned from a previous search."`
}

// ContentsResult represents the contents tool output.
type ContentsResult struct {
	Results []Result `json:"results" yaml:"Results" jsonschema:"title=results,description=The full text contents of the requested documents."`
}

func (r *ContentsResult) GetContent() string {
	return llmutils.ToJSON(r)
}

// ContentsTool fetches the full text of documents found by a search.
type ContentsTool struct {
	client     *Client
	funcParams any
}

var _ tools.Tool[ContentsRequest, ContentsResult] = (*ContentsTool)(nil)

func NewContentsTool() (*ContentsTool, error) {
	client, err := NewClient()
	if err != nil {
		return nil, err
	}
	return NewContentsToolWithClient(client)
}

func NewContentsToolWithClient(client *Client) (*ContentsTool, error) {
	sc, err := schema.New(reflect.TypeOf(ContentsRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &ContentsTool{
		client:     client,
		funcParams: sc.Parameters,
	}, nil
}

func (t *ContentsTool) Name() string {
	return ContentsToolName
}

func (t *ContentsTool) Description() string {
	return "A tool that fetches the full text contents of documents by ID or URL."
}

func (t *ContentsTool) Parameters() any {
	return t.funcParams
}

func (t *ContentsTool) Run(ctx context.Context, req *ContentsRequest) (*ContentsResult, error) {
	if len(req.IDs) == 0 {
		return nil, errors.New("invalid request: empty IDs")
	}

	apiReq := struct {
		IDs  []string `json:"ids"`
		Text bool     `json:"text"`
	}{
		IDs:  req.IDs,
		Text: true,
	}

	var res ContentsResult
	if err := t.client.post(ctx, "/contents", apiReq, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (t *ContentsTool) Call(ctx context.Context, input string) (string, error) {
	return tools.CallTyped[ContentsRequest, ContentsResult](ctx, t, input)
}

// FindSimilarRequest represents the find-similar tool input.
type FindSimilarRequest struct {
	URL        string `json:"URL" yaml:"URL" jsonschema:"title=URL,description=The URL to find similar pages for."`
	NumResults int    `json:"NumResults,omitempty" yaml:"NumResults,omitempty" jsonschema:"title=NumResults,description=The number of results to return. Defaults to 10."`
}

// FindSimilarTool finds pages semantically similar to a given URL.
type FindSimilarTool struct {
	client     *Client
	funcParams any
}

var _ tools.Tool[FindSimilarRequest, SearchResult] = (*FindSimilarTool)(nil)

func NewFindSimilarTool() (*FindSimilarTool, error) {
	client, err := NewClient()
	if err != nil {
		return nil, err
	}
	return NewFindSimilarToolWithClient(client)
}

func NewFindSimilarToolWithClient(client *Client) (*FindSimilarTool, error) {
	sc, err := schema.New(reflect.TypeOf(FindSimilarRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &FindSimilarTool{
		client:     client,
		funcParams: sc.Parameters,
	}, nil
}

func (t *FindSimilarTool) Name() string {
	return FindSimilarToolName
}

func (t *FindSimilarTool) Description() string {
	return "A tool that finds web pages semantically similar to a given URL."
}

func (t *FindSimilarTool) Parameters() any {
	return t.funcParams
}

func (t *FindSimilarTool) Run(ctx context.Context, req *FindSimilarRequest) (*SearchResult, error) {
	if req.URL == "" {
		return nil, errors.New("invalid request: empty URL")
	}

	apiReq := struct {
		URL        string `json:"url"`
		NumResults int    `json:"numResults,omitempty"`
	}{
		URL:        req.URL,
		NumResults: req.NumResults,
	}

	var res SearchResult
	if err := t.client.post(ctx, "/findSimilar", apiReq, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (t *FindSimilarTool) Call(ctx context.Context, input string) (string, error) {
	return tools.CallTyped[FindSimilarRequest, SearchResult](ctx, t, input)
}
