package lambda

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArn(t *testing.T) {
	cfg := FunctionConfig{
		FunctionName: "test-function",
		Region:       "us-east-1",
		AccountID:    "012345678912",
	}
	assert.Equal(t, "arn:aws:lambda:us-east-1:012345678912:function:test-function", cfg.Arn())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "orders")
	t.Setenv("AWS_LAMBDA_FUNCTION_MEMORY_SIZE", "512")
	t.Setenv("AWS_LAMBDA_FUNCTION_VERSION", "7")
	t.Setenv("AWS_LAMBDA_FUNCTION_TIMEOUT", "15")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_ACCOUNT_ID", "999999999999")

	cfg := ConfigFromEnv()
	assert.Equal(t, "orders", cfg.FunctionName)
	assert.Equal(t, 512, cfg.MemorySizeMB)
	assert.Equal(t, "7", cfg.FunctionVersion)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, "arn:aws:lambda:eu-west-1:999999999999:function:orders", cfg.Arn())
}
