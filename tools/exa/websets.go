package exa

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/llmutils"
	"github.com/effective-security/agenthub/schema"
	"github.com/effective-security/agenthub/tools"
	"github.com/effective-security/x/values"
)

const WebsetToolName = "ExaWebset"

// Webset statuses reported by the API.
const (
	WebsetStatusRunning = "running"
	WebsetStatusIdle    = "idle"
	WebsetStatusPaused  = "paused"
)

// DefaultWebsetPollInterval is the delay between status polls.
const DefaultWebsetPollInterval = 5 * time.Second

// DefaultWebsetCount is the number of items requested when unset.
const DefaultWebsetCount = 10

// WebsetRequest represents the webset tool input.
type WebsetRequest struct {
	Query    string   `json:"Query" yaml:"Query" jsonschema:"title=Query,description=The natural language description of the collection to build."`
	Count    int      `json:"Count,omitempty" yaml:"Count,omitempty" jsonschema:"title=Count,description=The number of items to collect. Defaults to 10."`
	Criteria []string `json:"Criteria,omitempty" yaml:"Criteria,omitempty" jsonschema:"title=Criteria,description=Optional criteria every item must satisfy."`
}

// WebsetItem is a single verified item of a webset.
type WebsetItem struct {
	ID          string `json:"id" yaml:"ID"`
	URL         string `json:"url" yaml:"URL"`
	Title       string `json:"title,omitempty" yaml:"Title,omitempty"`
	Description string `json:"description,omitempty" yaml:"Description,omitempty"`
}

// WebsetResult represents the webset tool output.
type WebsetResult struct {
	WebsetID string       `json:"websetId" yaml:"WebsetID" jsonschema:"title=websetId,description=The identifier of the created webset."`
	Status   string       `json:"status" yaml:"Status" jsonschema:"title=status,description=The final status of the webset."`
	Items    []WebsetItem `json:"items" yaml:"Items" jsonschema:"title=items,description=The collected items."`
}

func (r *WebsetResult) GetContent() string {
	return llmutils.ToJSON(r)
}

// Webset is the wire format of a webset object.
type Webset struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type websetItemsPage struct {
	Data    []WebsetItem `json:"data"`
	HasMore bool         `json:"hasMore"`
	Cursor  string       `json:"nextCursor"`
}

// WebsetTool creates an Exa webset and waits for the collection to settle.
type WebsetTool struct {
	client       *Client
	funcParams   any
	pollInterval time.Duration
	maxPolls     int
}

var _ tools.Tool[WebsetRequest, WebsetResult] = (*WebsetTool)(nil)

func NewWebsetTool() (*WebsetTool, error) {
	client, err := NewClient()
	if err != nil {
		return nil, err
	}
	return NewWebsetToolWithClient(client)
}

func NewWebsetToolWithClient(client *Client) (*WebsetTool, error) {
	sc, err := schema.New(reflect.TypeOf(WebsetRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &WebsetTool{
		client:       client,
		funcParams:   sc.Parameters,
		pollInterval: DefaultWebsetPollInterval,
		maxPolls:     60,
	}, nil
}

// WithPollInterval overrides the status poll delay, used in tests.
func (t *WebsetTool) WithPollInterval(d time.Duration) *WebsetTool {
	t.pollInterval = d
	return t
}

func (t *WebsetTool) Name() string {
	return WebsetToolName
}

func (t *WebsetTool) Description() string {
	return "A tool that builds a verified collection of web pages matching a description, waiting for the collection to complete."
}

func (t *WebsetTool) Parameters() any {
	return t.funcParams
}

func (t *WebsetTool) Run(ctx context.Context, req *WebsetRequest) (*WebsetResult, error) {
	if req.Query == "" {
		return nil, errors.New("invalid request: empty query")
	}

	ws, err := t.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	status, err := t.WaitIdle(ctx, ws.ID)
	if err != nil {
		return nil, err
	}

	items, err := t.ListItems(ctx, ws.ID)
	if err != nil {
		return nil, err
	}

	return &WebsetResult{
		WebsetID: ws.ID,
		Status:   status,
		Items:    items,
	}, nil
}

// Create starts a new webset collection.
func (t *WebsetTool) Create(ctx context.Context, req *WebsetRequest) (*Webset, error) {
	type criterion struct {
		Description string `json:"description"`
	}
	apiReq := struct {
		Search struct {
			Query    string      `json:"query"`
			Count    int         `json:"count"`
			Criteria []criterion `json:"criteria,omitempty"`
		} `json:"search"`
	}{}
	apiReq.Search.Query = req.Query
	apiReq.Search.Count = int(values.NumbersCoalesce(int64(req.Count), DefaultWebsetCount))
	for _, c := range req.Criteria {
		apiReq.Search.Criteria = append(apiReq.Search.Criteria, criterion{Description: c})
	}

	var ws Webset
	if err := t.client.post(ctx, "/websets/v0/websets", apiReq, &ws); err != nil {
		return nil, err
	}
	if ws.ID == "" {
		return nil, errors.New("webset was not created")
	}
	return &ws, nil
}

// WaitIdle polls the webset until it leaves the running state.
func (t *WebsetTool) WaitIdle(ctx context.Context, websetID string) (string, error) {
	for i := 0; i < t.maxPolls; i++ {
		var ws Webset
		err := t.client.get(ctx, "/websets/v0/websets/"+websetID, &ws)
		if err != nil {
			return "", err
		}
		if ws.Status != WebsetStatusRunning {
			return ws.Status, nil
		}

		select {
		case <-ctx.Done():
			return "", errors.WithStack(ctx.Err())
		case <-time.After(t.pollInterval):
		}
	}
	return "", errors.Newf("webset %s did not settle", websetID)
}

// ListItems pages through the items of a webset.
func (t *WebsetTool) ListItems(ctx context.Context, websetID string) ([]WebsetItem, error) {
	var items []WebsetItem
	cursor := ""
	for {
		path := fmt.Sprintf("/websets/v0/websets/%s/items", websetID)
		if cursor != "" {
			path += "?cursor=" + cursor
		}
		var page websetItemsPage
		if err := t.client.get(ctx, path, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Data...)
		if !page.HasMore || page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	return items, nil
}

func (t *WebsetTool) Call(ctx context.Context, input string) (string, error) {
	return tools.CallTyped[WebsetRequest, WebsetResult](ctx, t, input)
}
