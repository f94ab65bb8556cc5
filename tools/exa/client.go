// Package exa provides search tools backed by the Exa API,
// including Websets for asynchronous curated collections.
package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
)

// TokenEnvVarName is the environment variable holding the Exa API key.
const TokenEnvVarName = "EXA_API_KEY"

// DefaultBaseURL is the Exa API endpoint.
const DefaultBaseURL = "https://api.exa.ai"

// Client is a minimal Exa REST client shared by the tools in this package.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client using the EXA_API_KEY environment variable.
func NewClient() (*Client, error) {
	apikey := os.Getenv(TokenEnvVarName)
	if apikey == "" {
		return nil, errors.Newf("%s is not set", TokenEnvVarName)
	}
	return &Client{
		apiKey:     apikey,
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
	}, nil
}

// WithBaseURL overrides the API endpoint, used in tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// WithHTTPClient overrides the HTTP client.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.httpClient = client
	return c
}

// post sends a JSON body and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	bs, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(bs), out)
}

// get sends a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request failed: %s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		bs, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(bs, &apiErr) == nil && apiErr.Error != "" {
			return errors.Newf("exa API error: %s: %s", resp.Status, apiErr.Error)
		}
		return errors.Newf("exa API error: %s", resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "failed to decode response")
		}
	}
	return nil
}
