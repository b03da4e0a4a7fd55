package lambda

import (
	"fmt"
	"time"

	"github.com/lambtest/lambda-test-server/internal/utils"
)

// FunctionConfig mirrors the AWS_LAMBDA_* environment contract of a real
// execution environment.
type FunctionConfig struct {
	FunctionName    string        // AWS_LAMBDA_FUNCTION_NAME
	MemorySizeMB    int           // AWS_LAMBDA_FUNCTION_MEMORY_SIZE
	FunctionVersion string        // AWS_LAMBDA_FUNCTION_VERSION
	Timeout         time.Duration // AWS_LAMBDA_FUNCTION_TIMEOUT (seconds)
	Region          string        // AWS_REGION
	AccountID       string        // AWS_ACCOUNT_ID
}

// ConfigFromEnv resolves the function configuration with the defaults a
// local test environment expects.
func ConfigFromEnv() FunctionConfig {
	return FunctionConfig{
		FunctionName:    utils.GetEnvWithDefault("AWS_LAMBDA_FUNCTION_NAME", "test-function"),
		MemorySizeMB:    utils.GetEnvInt("AWS_LAMBDA_FUNCTION_MEMORY_SIZE", 128),
		FunctionVersion: utils.GetEnvWithDefault("AWS_LAMBDA_FUNCTION_VERSION", "$LATEST"),
		Timeout:         utils.GetEnvSeconds("AWS_LAMBDA_FUNCTION_TIMEOUT", 30*time.Second),
		Region:          utils.GetEnvWithDefault("AWS_REGION", "us-east-1"),
		AccountID:       utils.GetEnvWithDefault("AWS_ACCOUNT_ID", "012345678912"),
	}
}

// Arn renders the invoked-function ARN for this configuration.
func (c FunctionConfig) Arn() string {
	return fmt.Sprintf("arn:aws:lambda:%s:%s:function:%s", c.Region, c.AccountID, c.FunctionName)
}
