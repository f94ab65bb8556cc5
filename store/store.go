// Package store persists conversation history keyed by the chat ID carried
// in the request context.
package store

import (
	"context"
	"time"

	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agenthub", "store")

// MessageStore stores chat messages for the chat ID found in the context.
type MessageStore interface {
	// Messages returns the stored messages for the current chat.
	Messages(ctx context.Context) []llms.Message
	// Add appends messages to the current chat.
	Add(ctx context.Context, msgs ...llms.Message) error
	// Reset removes all messages for the current chat.
	Reset(ctx context.Context) error
}

// ChatInfo describes a stored chat.
type ChatInfo struct {
	ChatID    string         `json:"chat_id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ChatManager extends MessageStore with chat lifecycle operations.
type ChatManager interface {
	MessageStore
	// UpdateChat creates or updates the chat title and metadata.
	UpdateChat(ctx context.Context, title string, metadata map[string]any) error
	// GetChatInfo returns the chat metadata.
	GetChatInfo(ctx context.Context) (*ChatInfo, error)
	// ListChats returns the known chat IDs.
	ListChats(ctx context.Context) ([]string, error)
	// Cleanup removes chats not updated within the retention window and
	// returns the number of removed chats.
	Cleanup(ctx context.Context, olderThan time.Duration) (uint32, error)
}

// messageModel is the serializable form of llms.Message. The ContentPart
// interface cannot round-trip through JSON directly.
type messageModel struct {
	Role          llms.Role               `json:"role"`
	Texts         []string                `json:"texts,omitempty"`
	ToolCalls     []llms.ToolCall         `json:"tool_calls,omitempty"`
	ToolResponses []llms.ToolCallResponse `json:"tool_responses,omitempty"`
}

func toModel(msg llms.Message) messageModel {
	model := messageModel{Role: msg.Role}
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			model.Texts = append(model.Texts, p.Text)
		case llms.ToolCall:
			model.ToolCalls = append(model.ToolCalls, p)
		case llms.ToolCallResponse:
			model.ToolResponses = append(model.ToolResponses, p)
		}
	}
	return model
}

func fromModel(model messageModel) llms.Message {
	msg := llms.Message{Role: model.Role}
	for _, text := range model.Texts {
		msg.Parts = append(msg.Parts, llms.TextPart(text))
	}
	for _, tc := range model.ToolCalls {
		msg.Parts = append(msg.Parts, tc)
	}
	for _, tr := range model.ToolResponses {
		msg.Parts = append(msg.Parts, tr)
	}
	return msg
}
