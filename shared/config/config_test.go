package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jp93arg/NFTMarketplace/shared/config"
)

func TestGetEnv(t *testing.T) {
	assert.Equal(t, "fallback", config.GetEnv("MARKET_TEST_UNSET", "fallback"))

	t.Setenv("MARKET_TEST_STR", "value")
	assert.Equal(t, "value", config.GetEnv("MARKET_TEST_STR", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	assert.Equal(t, 7, config.GetEnvInt("MARKET_TEST_UNSET", 7))

	t.Setenv("MARKET_TEST_INT", "42")
	assert.Equal(t, 42, config.GetEnvInt("MARKET_TEST_INT", 7))

	t.Setenv("MARKET_TEST_INT", "not-a-number")
	assert.Equal(t, 7, config.GetEnvInt("MARKET_TEST_INT", 7))
}

func TestGetEnvUint64(t *testing.T) {
	assert.Equal(t, uint64(25000), config.GetEnvUint64("MARKET_TEST_UNSET", 25000))

	t.Setenv("MARKET_TEST_UINT", "100000")
	assert.Equal(t, uint64(100000), config.GetEnvUint64("MARKET_TEST_UINT", 25000))

	t.Setenv("MARKET_TEST_UINT", "-1")
	assert.Equal(t, uint64(25000), config.GetEnvUint64("MARKET_TEST_UINT", 25000))
}
