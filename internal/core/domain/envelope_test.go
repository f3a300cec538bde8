package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/topcenter/portal-realtime/internal/core/domain"
)

func TestDecodeEnvelope(t *testing.T) {
	t.Run("chat message frame", func(t *testing.T) {
		raw := []byte(`{"type":"chat_message","id":"m1","data":{"content":"Bonjour","senderId":"agent","timestamp":1714557600000}}`)

		env, err := domain.DecodeEnvelope(raw)
		require.NoError(t, err)
		assert.Equal(t, domain.EnvelopeChatMessage, env.Type)

		msg, err := env.ChatMessage()
		require.NoError(t, err)
		assert.Equal(t, "m1", msg.ID)
		assert.Equal(t, "Bonjour", msg.Content)
		assert.Equal(t, domain.SenderAgent, msg.Sender)
		assert.Equal(t, int64(1714557600000), msg.Timestamp)

		_, err = env.StatusUpdate()
		assert.Error(t, err)
	})

	t.Run("status update frame", func(t *testing.T) {
		raw := []byte(`{"type":"status_update","id":"s1","data":{"status":"agent_joined","message":"Un conseiller arrive"}}`)

		env, err := domain.DecodeEnvelope(raw)
		require.NoError(t, err)

		data, err := env.StatusUpdate()
		require.NoError(t, err)
		assert.Equal(t, "agent_joined", data.Status)
		assert.Equal(t, "Un conseiller arrive", data.Message)
	})

	t.Run("unknown type still decodes", func(t *testing.T) {
		env, err := domain.DecodeEnvelope([]byte(`{"type":"typing","id":"x","data":{}}`))
		require.NoError(t, err)
		assert.Equal(t, domain.EnvelopeType("typing"), env.Type)
	})

	t.Run("malformed frames are rejected", func(t *testing.T) {
		for _, raw := range []string{``, `not json`, `{"id":"x"}`, `[1,2]`} {
			_, err := domain.DecodeEnvelope([]byte(raw))
			assert.Error(t, err, raw)
		}
	})

	t.Run("bad data object", func(t *testing.T) {
		env, err := domain.DecodeEnvelope([]byte(`{"type":"chat_message","id":"x","data":"oops"}`))
		require.NoError(t, err)

		_, err = env.ChatMessage()
		assert.Error(t, err)
	})
}

func TestNewChatEnvelope(t *testing.T) {
	msg := domain.ChatMessage{ID: "m1", Content: "Salut", Sender: domain.SenderUser, Timestamp: 42}

	env, err := domain.NewChatEnvelope(msg)
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"chat_message","id":"m1","data":{"content":"Salut","senderId":"user","timestamp":42}}`, string(raw))
}
