package store_test

import (
	"context"
	"testing"

	"github.com/effective-security/agenthub/chatmodel"
	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/agenthub/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatCtx(chatID string) context.Context {
	return chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext(chatID, nil))
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	ctx := chatCtx("chat-1")

	assert.Empty(t, s.Messages(ctx))

	require.NoError(t, s.Add(ctx,
		llms.MessageFromTextParts(llms.RoleHuman, "hello"),
		llms.MessageFromTextParts(llms.RoleAI, "hi there"),
	))

	msgs := s.Messages(ctx)
	require.Len(t, msgs, 2)
	assert.Equal(t, llms.RoleHuman, msgs[0].Role)
	assert.Equal(t, "hello", llms.TextFromParts(msgs[0].Parts))
	assert.Equal(t, "hi there", llms.TextFromParts(msgs[1].Parts))

	// chats are isolated
	other := chatCtx("chat-2")
	assert.Empty(t, s.Messages(other))

	require.NoError(t, s.Reset(ctx))
	assert.Empty(t, s.Messages(ctx))
}

func TestMemoryStoreNoChatID(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	ctx := context.Background()

	assert.Nil(t, s.Messages(ctx))
	err := s.Add(ctx, llms.MessageFromTextParts(llms.RoleHuman, "hello"))
	assert.ErrorIs(t, err, chatmodel.ErrInvalidChatContext)
	assert.Error(t, s.Reset(ctx))
}
