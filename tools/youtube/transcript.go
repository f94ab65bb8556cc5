package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/llmutils"
	"github.com/effective-security/agenthub/schema"
	"github.com/effective-security/agenthub/tools"
	"github.com/effective-security/x/values"
)

const TranscriptToolName = "YouTubeTranscript"

// DefaultTimedTextURL is the caption endpoint.
const DefaultTimedTextURL = "https://www.youtube.com/api/timedtext"

// TranscriptRequest represents the transcript tool input.
type TranscriptRequest struct {
	VideoID  string `json:"VideoID" yaml:"VideoID" jsonschema:"title=VideoID,description=The YouTube video ID."`
	Language string `json:"Language,omitempty" yaml:"Language,omitempty" jsonschema:"title=Language,description=The caption language code. Defaults to en."`
}

// TranscriptLine is a single caption with its timing.
type TranscriptLine struct {
	Start    float64 `json:"start" yaml:"Start"`
	Duration float64 `json:"duration" yaml:"Duration"`
	Text     string  `json:"text" yaml:"Text"`
}

// TranscriptResult represents the transcript tool output.
type TranscriptResult struct {
	VideoID string           `json:"videoId" yaml:"VideoID" jsonschema:"title=videoId,description=The video the transcript belongs to."`
	Lines   []TranscriptLine `json:"lines" yaml:"Lines" jsonschema:"title=lines,description=The caption lines with timings."`
}

func (r *TranscriptResult) GetContent() string {
	return llmutils.ToJSON(r)
}

// Text joins the caption lines into a single plain text transcript.
func (r *TranscriptResult) Text() string {
	parts := make([]string, 0, len(r.Lines))
	for _, line := range r.Lines {
		parts = append(parts, line.Text)
	}
	return strings.Join(parts, " ")
}

// timedText is the wire format of the caption endpoint.
type timedText struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Start    float64 `xml:"start,attr"`
		Duration float64 `xml:"dur,attr"`
		Body     string  `xml:",chardata"`
	} `xml:"text"`
}

// TranscriptTool fetches video captions from the timedtext endpoint.
// The endpoint serves XML and needs no API key.
type TranscriptTool struct {
	funcParams any

	baseURL    string
	httpClient *http.Client
}

var _ tools.Tool[TranscriptRequest, TranscriptResult] = (*TranscriptTool)(nil)

func NewTranscriptTool() (*TranscriptTool, error) {
	sc, err := schema.New(reflect.TypeOf(TranscriptRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &TranscriptTool{
		funcParams: sc.Parameters,
		baseURL:    DefaultTimedTextURL,
		httpClient: http.DefaultClient,
	}, nil
}

func (t *TranscriptTool) WithBaseURL(baseURL string) *TranscriptTool {
	t.baseURL = baseURL
	return t
}

func (t *TranscriptTool) WithHTTPClient(client *http.Client) *TranscriptTool {
	t.httpClient = client
	return t
}

func (t *TranscriptTool) Name() string {
	return TranscriptToolName
}

func (t *TranscriptTool) Description() string {
	return "A tool that fetches the caption transcript of a YouTube video."
}

func (t *TranscriptTool) Parameters() any {
	return t.funcParams
}

func (t *TranscriptTool) Run(ctx context.Context, req *TranscriptRequest) (*TranscriptResult, error) {
	if req.VideoID == "" {
		return nil, errors.New("invalid request: empty video ID")
	}

	q := url.Values{}
	q.Set("v", req.VideoID)
	q.Set("lang", values.StringsCoalesce(req.Language, "en"))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch transcript")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("transcript fetch failed: %s", resp.Status)
	}

	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read transcript")
	}
	// An empty body means no captions exist for the language.
	if len(strings.TrimSpace(string(bs))) == 0 {
		return nil, errors.Newf("no transcript available for video: %s", req.VideoID)
	}

	var tt timedText
	if err := xml.Unmarshal(bs, &tt); err != nil {
		return nil, errors.Wrap(err, "failed to parse transcript")
	}

	res := &TranscriptResult{
		VideoID: req.VideoID,
	}
	for _, line := range tt.Texts {
		text := strings.TrimSpace(line.Body)
		if text == "" {
			continue
		}
		res.Lines = append(res.Lines, TranscriptLine{
			Start:    line.Start,
			Duration: line.Duration,
			Text:     text,
		})
	}
	return res, nil
}

func (t *TranscriptTool) Call(ctx context.Context, input string) (string, error) {
	return tools.CallTyped[TranscriptRequest, TranscriptResult](ctx, t, input)
}

// FormatTimestamp renders a caption start offset as mm:ss.
func FormatTimestamp(seconds float64) string {
	s := int(seconds)
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
