package dnd5e_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/agenthub/tools/dnd5e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/spells":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"count": 3,
				"results": []map[string]any{
					{"index": "fireball", "name": "Fireball", "url": "/api/spells/fireball"},
					{"index": "fire-bolt", "name": "Fire Bolt", "url": "/api/spells/fire-bolt"},
					{"index": "magic-missile", "name": "Magic Missile", "url": "/api/spells/magic-missile"},
				},
			})
		case "/api/spells/fireball":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"index": "fireball",
				"name":  "Fireball",
				"level": 3,
				"desc":  []string{"A bright streak flashes from your pointing finger."},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Not found"}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestTool(t *testing.T) *dnd5e.Tool {
	t.Helper()
	server := newTestServer(t)
	tool, err := dnd5e.New()
	require.NoError(t, err)
	return tool.WithBaseURL(server.URL).WithHTTPClient(server.Client())
}

func Test_ToolList(t *testing.T) {
	tool := newTestTool(t)

	assert.Equal(t, dnd5e.ToolName, tool.Name())
	assert.Contains(t, tool.Description(), "D&D")

	res, err := tool.Run(context.Background(), &dnd5e.LookupRequest{Resource: "spells"})
	require.NoError(t, err)
	assert.Equal(t, "spells", res.Resource)
	require.Len(t, res.Entries, 3)
	assert.Equal(t, "fireball", res.Entries[0].Index)
}

func Test_ToolLookup(t *testing.T) {
	tool := newTestTool(t)

	res, err := tool.Run(context.Background(), &dnd5e.LookupRequest{Resource: "spells", Name: "Fireball"})
	require.NoError(t, err)
	require.NotNil(t, res.Entry)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(res.Entry, &entry))
	assert.Equal(t, "Fireball", entry["name"])
	assert.Equal(t, float64(3), entry["level"])
}

func Test_ToolFuzzyLookup(t *testing.T) {
	tool := newTestTool(t)

	// misspelled, resolved by edit distance over the slug
	res, err := tool.Run(context.Background(), &dnd5e.LookupRequest{Resource: "Spells", Name: "firebal"})
	require.NoError(t, err)
	require.NotNil(t, res.Entry)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(res.Entry, &entry))
	assert.Equal(t, "Fireball", entry["name"])
}

func Test_ToolNotFound(t *testing.T) {
	tool := newTestTool(t)

	_, err := tool.Run(context.Background(), &dnd5e.LookupRequest{Resource: "spells", Name: "wish upon a star"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry not found")
}

func Test_ToolUnsupportedResource(t *testing.T) {
	tool := newTestTool(t)

	_, err := tool.Run(context.Background(), &dnd5e.LookupRequest{Resource: "vehicles"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported resource: "vehicles"`)
}

func Test_Slugify(t *testing.T) {
	assert.Equal(t, "magic-missile", dnd5e.Slugify("Magic Missile"))
	assert.Equal(t, "mage-hand", dnd5e.Slugify("  Mage   Hand  "))
	assert.Equal(t, "bigbys-hand", dnd5e.Slugify("Bigby's Hand"))
}
