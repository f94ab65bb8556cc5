// Package youtube provides video search, metadata, and transcript tools
// backed by the YouTube Data API.
package youtube

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/llmutils"
	"github.com/effective-security/agenthub/schema"
	"github.com/effective-security/agenthub/tools"
	"github.com/effective-security/x/values"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"
)

const (
	SearchToolName = "YouTubeSearch"
	VideoToolName  = "YouTubeVideo"
)

// TokenEnvVarName is the environment variable holding the API key.
const TokenEnvVarName = "YOUTUBE_API_KEY"

// DefaultMaxResults is the number of search results when unset.
const DefaultMaxResults = 10

// SearchRequest represents the search tool input.
type SearchRequest struct {
	Query      string `json:"Query" yaml:"Query" jsonschema:"title=Query,description=The query to search videos for."`
	MaxResults int    `json:"MaxResults,omitempty" yaml:"MaxResults,omitempty" jsonschema:"title=MaxResults,description=The number of results to return. Defaults to 10."`
}

// Video describes a single video.
type Video struct {
	ID           string `json:"id" yaml:"ID"`
	Title        string `json:"title" yaml:"Title"`
	Description  string `json:"description,omitempty" yaml:"Description,omitempty"`
	ChannelTitle string `json:"channelTitle,omitempty" yaml:"ChannelTitle,omitempty"`
	PublishedAt  string `json:"publishedAt,omitempty" yaml:"PublishedAt,omitempty"`
	Duration     string `json:"duration,omitempty" yaml:"Duration,omitempty"`
	ViewCount    uint64 `json:"viewCount,omitempty" yaml:"ViewCount,omitempty"`
	LikeCount    uint64 `json:"likeCount,omitempty" yaml:"LikeCount,omitempty"`
}

// SearchResult represents the search tool output.
type SearchResult struct {
	Videos []Video `json:"videos" yaml:"Videos" jsonschema:"title=videos,description=The videos matching the search query."`
}

func (r *SearchResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *SearchResult) String() string {
	var buf bytes.Buffer
	for _, v := range r.Videos {
		fmt.Fprintf(&buf, "- ID: %s\n", v.ID)
		fmt.Fprintf(&buf, "  TITLE: %s\n", v.Title)
		fmt.Fprintf(&buf, "  CHANNEL: %s\n", v.ChannelTitle)
	}
	return buf.String()
}

// newService creates the Data API service. Endpoint and HTTP client
// overrides are used in tests.
func newService(ctx context.Context, endpoint string, client *http.Client) (*youtubeapi.Service, error) {
	apikey := os.Getenv(TokenEnvVarName)
	if apikey == "" {
		return nil, errors.Newf("%s is not set", TokenEnvVarName)
	}

	opts := []option.ClientOption{option.WithAPIKey(apikey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	if client != nil {
		opts = append(opts, option.WithHTTPClient(client))
	}

	svc, err := youtubeapi.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create youtube service")
	}
	return svc, nil
}

// SearchTool searches YouTube for videos.
type SearchTool struct {
	funcParams any

	endpoint   string
	httpClient *http.Client
}

var _ tools.Tool[SearchRequest, SearchResult] = (*SearchTool)(nil)

// NewSearchTool creates the search tool. The API key is read from
// YOUTUBE_API_KEY.
func NewSearchTool() (*SearchTool, error) {
	if os.Getenv(TokenEnvVarName) == "" {
		return nil, errors.Newf("%s is not set", TokenEnvVarName)
	}
	sc, err := schema.New(reflect.TypeOf(SearchRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &SearchTool{
		funcParams: sc.Parameters,
	}, nil
}

func (t *SearchTool) WithEndpoint(endpoint string) *SearchTool {
	t.endpoint = endpoint
	return t
}

func (t *SearchTool) WithHTTPClient(client *http.Client) *SearchTool {
	t.httpClient = client
	return t
}

func (t *SearchTool) Name() string {
	return SearchToolName
}

func (t *SearchTool) Description() string {
	return "A tool that searches YouTube for videos matching a query."
}

func (t *SearchTool) Parameters() any {
	return t.funcParams
}

func (t *SearchTool) Run(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req.Query == "" {
		return nil, errors.New("invalid request: empty query")
	}

	svc, err := newService(ctx, t.endpoint, t.httpClient)
	if err != nil {
		return nil, err
	}

	maxResults := values.NumbersCoalesce(int64(req.MaxResults), DefaultMaxResults)
	resp, err := svc.Search.List([]string{"snippet"}).
		Q(req.Query).
		Type("video").
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.Wrap(err, "failed to search videos")
	}

	res := &SearchResult{}
	for _, item := range resp.Items {
		if item.Id == nil || item.Snippet == nil {
			continue
		}
		res.Videos = append(res.Videos, Video{
			ID:           item.Id.VideoId,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  item.Snippet.PublishedAt,
		})
	}
	return res, nil
}

func (t *SearchTool) Call(ctx context.Context, input string) (string, error) {
	return tools.CallTyped[SearchRequest, SearchResult](ctx, t, input)
}

// VideoRequest represents the video metadata tool input.
type VideoRequest struct {
	VideoID string `json:"VideoID" yaml:"VideoID" jsonschema:"title=VideoID,description=The YouTube video ID."`
}

// VideoResult represents the video metadata tool output.
type VideoResult struct {
	Video Video `json:"video" yaml:"Video" jsonschema:"title=video,description=The video metadata."`
}

func (r *VideoResult) GetContent() string {
	return llmutils.ToJSON(r)
}

// VideoTool fetches metadata and statistics for a single video.
type VideoTool struct {
	funcParams any

	endpoint   string
	httpClient *http.Client
}

var _ tools.Tool[VideoRequest, VideoResult] = (*VideoTool)(nil)

func NewVideoTool() (*VideoTool, error) {
	if os.Getenv(TokenEnvVarName) == "" {
		return nil, errors.Newf("%s is not set", TokenEnvVarName)
	}
	sc, err := schema.New(reflect.TypeOf(VideoRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &VideoTool{
		funcParams: sc.Parameters,
	}, nil
}

func (t *VideoTool) WithEndpoint(endpoint string) *VideoTool {
	t.endpoint = endpoint
	return t
}

func (t *VideoTool) WithHTTPClient(client *http.Client) *VideoTool {
	t.httpClient = client
	return t
}

func (t *VideoTool) Name() string {
	return VideoToolName
}

func (t *VideoTool) Description() string {
	return "A tool that returns metadata and statistics for a YouTube video."
}

func (t *VideoTool) Parameters() any {
	return t.funcParams
}

func (t *VideoTool) Run(ctx context.Context, req *VideoRequest) (*VideoResult, error) {
	if req.VideoID == "" {
		return nil, errors.New("invalid request: empty video ID")
	}

	svc, err := newService(ctx, t.endpoint, t.httpClient)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(req.VideoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get video")
	}
	if len(resp.Items) == 0 {
		return nil, errors.Newf("video not found: %s", req.VideoID)
	}

	item := resp.Items[0]
	v := Video{ID: item.Id}
	if item.Snippet != nil {
		v.Title = item.Snippet.Title
		v.Description = item.Snippet.Description
		v.ChannelTitle = item.Snippet.ChannelTitle
		v.PublishedAt = item.Snippet.PublishedAt
	}
	if item.ContentDetails != nil {
		v.Duration = item.ContentDetails.Duration
	}
	if item.Statistics != nil {
		v.ViewCount = item.Statistics.ViewCount
		v.LikeCount = item.Statistics.LikeCount
	}
	return &VideoResult{Video: v}, nil
}

func (t *VideoTool) Call(ctx context.Context, input string) (string, error) {
	return tools.CallTyped[VideoRequest, VideoResult](ctx, t, input)
}
