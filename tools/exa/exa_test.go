package exa_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/chatmodel"
	"github.com/effective-security/agenthub/llmutils"
	"github.com/effective-security/agenthub/tools/exa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *exa.Client {
	t.Helper()
	t.Setenv("EXA_API_KEY", "testkey")

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := exa.NewClient()
	require.NoError(t, err)
	return client.WithBaseURL(server.URL).WithHTTPClient(server.Client())
}

func Test_NewClientNoKey(t *testing.T) {
	t.Setenv("EXA_API_KEY", "")
	_, err := exa.NewClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXA_API_KEY is not set")
}

func Test_SearchTool(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "testkey", r.Header.Get("x-api-key"))

		var req map[string]any
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Equal(t, "latest Go releases", req["query"])
		assert.Equal(t, true, req["useAutoprompt"])

		_ = json.NewEncoder(w).Encode(exa.SearchResult{
			Results: []exa.Result{
				{ID: "doc1", Title: "Go 1.25", URL: "https://go.dev/blog/go1.25", Score: 0.92, Text: "Go 1.25 is released."},
			},
			AutopromptString: "Here are the latest Go releases:",
		})
	}))

	tool, err := exa.NewSearchToolWithClient(client)
	require.NoError(t, err)

	assert.Equal(t, exa.SearchToolName, tool.Name())
	assert.Contains(t, tool.Description(), "searches the web")
	assert.Contains(t, llmutils.ToJSONIndent(tool.Parameters()), `"Query"`)

	ctx := context.Background()

	_, err = tool.Call(ctx, "not a json")
	assert.True(t, errors.Is(err, chatmodel.ErrFailedUnmarshalInput))

	res, err := tool.Run(ctx, &exa.SearchRequest{Query: "latest Go releases"})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "Go 1.25", res.Results[0].Title)
	assert.Contains(t, res.String(), "AUTOPROMPT: Here are the latest Go releases:")
	assert.Contains(t, res.String(), "SCORE: 0.920000")

	_, err = tool.Run(ctx, &exa.SearchRequest{})
	assert.EqualError(t, err, "invalid request: empty query")
}

func Test_SearchToolKeyword(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Equal(t, "keyword", req["type"])
		// Keyword search must not enable autoprompt.
		_, ok := req["useAutoprompt"]
		assert.False(t, ok)

		_ = json.NewEncoder(w).Encode(exa.SearchResult{ResolvedSearchType: "keyword"})
	}))

	tool, err := exa.NewSearchToolWithClient(client)
	require.NoError(t, err)

	res, err := tool.Run(context.Background(), &exa.SearchRequest{Query: "golang", Type: "keyword"})
	require.NoError(t, err)
	assert.Equal(t, "keyword", res.ResolvedSearchType)
}

func Test_SearchToolAPIError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid API key"}`))
	}))

	tool, err := exa.NewSearchToolWithClient(client)
	require.NoError(t, err)

	_, err = tool.Run(context.Background(), &exa.SearchRequest{Query: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid API key")
}

func Test_ContentsTool(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contents", r.URL.Path)

		var req struct {
			IDs  []string `json:"ids"`
			Text bool     `json:"text"`
		}
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Equal(t, []string{"doc1"}, req.IDs)
		assert.True(t, req.Text)

		_ = json.NewEncoder(w).Encode(exa.ContentsResult{
			Results: []exa.Result{{ID: "doc1", Text: "full text"}},
		})
	}))

	tool, err := exa.NewContentsToolWithClient(client)
	require.NoError(t, err)

	res, err := tool.Run(context.Background(), &exa.ContentsRequest{IDs: []string{"doc1"}})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "full text", res.Results[0].Text)

	_, err = tool.Run(context.Background(), &exa.ContentsRequest{})
	assert.EqualError(t, err, "invalid request: empty IDs")
}

func Test_FindSimilarTool(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/findSimilar", r.URL.Path)

		var req struct {
			URL string `json:"url"`
		}
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Equal(t, "https://go.dev", req.URL)

		_ = json.NewEncoder(w).Encode(exa.SearchResult{
			Results: []exa.Result{{Title: "The Rust Programming Language", URL: "https://rust-lang.org"}},
		})
	}))

	tool, err := exa.NewFindSimilarToolWithClient(client)
	require.NoError(t, err)

	res, err := tool.Run(context.Background(), &exa.FindSimilarRequest{URL: "https://go.dev"})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "https://rust-lang.org", res.Results[0].URL)
}

func Test_WebsetTool(t *testing.T) {
	var polls atomic.Int32

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/websets/v0/websets":
			var req map[string]any
			err := json.NewDecoder(r.Body).Decode(&req)
			require.NoError(t, err)
			search := req["search"].(map[string]any)
			assert.Equal(t, "AI startups in Berlin", search["query"])
			assert.Equal(t, float64(10), search["count"])

			_ = json.NewEncoder(w).Encode(exa.Webset{ID: "ws_1", Status: "running"})

		case r.Method == http.MethodGet && r.URL.Path == "/websets/v0/websets/ws_1":
			status := "running"
			if polls.Add(1) >= 2 {
				status = "idle"
			}
			_ = json.NewEncoder(w).Encode(exa.Webset{ID: "ws_1", Status: status})

		case r.Method == http.MethodGet && r.URL.Path == "/websets/v0/websets/ws_1/items":
			if r.URL.Query().Get("cursor") == "" {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"data":       []exa.WebsetItem{{ID: "item_1", URL: "https://a.example.com"}},
					"hasMore":    true,
					"nextCursor": "c2",
				})
			} else {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"data":    []exa.WebsetItem{{ID: "item_2", URL: "https://b.example.com"}},
					"hasMore": false,
				})
			}

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))

	tool, err := exa.NewWebsetToolWithClient(client)
	require.NoError(t, err)
	tool.WithPollInterval(time.Millisecond)

	res, err := tool.Run(context.Background(), &exa.WebsetRequest{Query: "AI startups in Berlin"})
	require.NoError(t, err)
	assert.Equal(t, "ws_1", res.WebsetID)
	assert.Equal(t, exa.WebsetStatusIdle, res.Status)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "item_2", res.Items[1].ID)
}
