package messaging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBackoff(t *testing.T) {
	cfg := BackoffConfig{Initial: 2 * time.Second, Max: 10 * time.Second, Multiplier: 2}

	assert.Equal(t, 2*time.Second, cfg.CalculateBackoff(0))
	assert.Equal(t, 4*time.Second, cfg.CalculateBackoff(1))
	assert.Equal(t, 8*time.Second, cfg.CalculateBackoff(2))
	assert.Equal(t, 10*time.Second, cfg.CalculateBackoff(3))
	assert.Equal(t, 10*time.Second, cfg.CalculateBackoff(10))
}

func TestNewMessageAndDecode(t *testing.T) {
	msg, err := NewMessage(TypeCardGeneration, "brand-1", &CardGenerationPayload{BrandID: "brand-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	msg.SetMetadata("request_id", "req-1")

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	decoded := decode(redis.XMessage{ID: "1-0", Values: map[string]interface{}{"data": string(data)}})
	require.NotNil(t, decoded)
	assert.Equal(t, TypeCardGeneration, decoded.Type)
	assert.Equal(t, "req-1", decoded.GetMetadata("request_id"))

	var payload CardGenerationPayload
	require.NoError(t, decoded.UnmarshalPayload(&payload))
	assert.Equal(t, "brand-1", payload.BrandID)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	assert.Nil(t, decode(redis.XMessage{Values: map[string]interface{}{"data": 42}}))
	assert.Nil(t, decode(redis.XMessage{Values: map[string]interface{}{"data": "{not json"}}))
}

func TestDLQStream(t *testing.T) {
	assert.Equal(t, "dlq:stream:cards:generation", StreamCardJobs.DLQStream())
}
