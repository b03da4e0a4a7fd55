package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvWithDefault(t *testing.T) {
	assert.Equal(t, "fallback", GetEnvWithDefault("UTILS_TEST_UNSET", "fallback"))

	t.Setenv("UTILS_TEST_SET", "value")
	assert.Equal(t, "value", GetEnvWithDefault("UTILS_TEST_SET", "fallback"))

	t.Setenv("UTILS_TEST_EMPTY", "")
	assert.Equal(t, "", GetEnvWithDefault("UTILS_TEST_EMPTY", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	assert.Equal(t, 42, GetEnvInt("UTILS_TEST_UNSET", 42))

	t.Setenv("UTILS_TEST_INT", "128")
	assert.Equal(t, 128, GetEnvInt("UTILS_TEST_INT", 42))

	t.Setenv("UTILS_TEST_BAD_INT", "not-a-number")
	assert.Equal(t, 42, GetEnvInt("UTILS_TEST_BAD_INT", 42))
}

func TestGetEnvSeconds(t *testing.T) {
	assert.Equal(t, 30*time.Second, GetEnvSeconds("UTILS_TEST_UNSET", 30*time.Second))

	t.Setenv("UTILS_TEST_SECONDS", "5")
	assert.Equal(t, 5*time.Second, GetEnvSeconds("UTILS_TEST_SECONDS", 30*time.Second))

	t.Setenv("UTILS_TEST_NEG_SECONDS", "-1")
	assert.Equal(t, 30*time.Second, GetEnvSeconds("UTILS_TEST_NEG_SECONDS", 30*time.Second))
}
