package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "dataset:b-1", DatasetKey("b-1"))
	assert.Equal(t, "ratelimit:generate:10.0.0.1", BuildRateLimitKey("10.0.0.1", "generate"))
}
