package bootstrap

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lakeside-dental/internal/chat"
	appconfig "github.com/wolfman30/lakeside-dental/internal/config"
	"github.com/wolfman30/lakeside-dental/internal/content"
	"github.com/wolfman30/lakeside-dental/internal/knowledge"
	"github.com/wolfman30/lakeside-dental/pkg/logging"
)

func TestBuildRedisClient(t *testing.T) {
	logger := logging.New("error")
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, logger, true))
	assert.Nil(t, BuildRedisClient(context.Background(), nil, logger, true))

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, true)
	require.NotNil(t, client)
	defer client.Close()

	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, true),
		"unreachable redis is treated as disabled")
}

func TestOpenDatabaseWithoutURL(t *testing.T) {
	db, err := OpenDatabase(context.Background(), &appconfig.Config{})
	require.NoError(t, err)
	assert.Nil(t, db)

	_, isMemory := BuildAppointmentRepository(nil, logging.New("error")).(*content.InMemoryRepository)
	assert.True(t, isMemory)
	assert.Nil(t, BuildAuditService(nil))
	db.Close()
}

func TestBuildChatEngine(t *testing.T) {
	kb := knowledge.MustDefault()

	off := BuildChatEngine(&appconfig.Config{ChatGatewayEnabled: true}, kb, ChatDeps{Logger: logging.New("error")})
	assert.False(t, off.GatewayConfigured(), "no API key means no gateway")

	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{
		RedisAddr:          mr.Addr(),
		ChatGatewayEnabled: true,
		ChatGatewayAPIKey:  "sk-test",
		ChatGatewayBaseURL: "http://127.0.0.1:1",
		ChatGatewayTimeout: 50 * time.Millisecond,
		ChatReplyCacheTTL:  time.Minute,
	}
	redisClient := BuildRedisClient(context.Background(), cfg, nil, true)
	require.NotNil(t, redisClient)
	defer redisClient.Close()

	on := BuildChatEngine(cfg, kb, ChatDeps{Redis: redisClient, Logger: logging.New("error")})
	assert.True(t, on.GatewayConfigured())

	// Unreachable gateway still yields the deterministic reply.
	result := on.Respond(context.Background(), chat.Request{Message: "Tell me about implants", Pathname: "/"})
	assert.Equal(t, chat.SourceKnowledgeBase, result.Reply.Source)
}
