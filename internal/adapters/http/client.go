package http

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/bft-labs/fimsync/pkg/log"
)

// ClientConfig configures the retrying HTTP client.
type ClientConfig struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// DefaultClientConfig returns the client settings used by the agent.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:      30 * time.Second,
		RetryMax:     3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 10 * time.Second,
	}
}

// NewClient returns an *http.Client that retries connection errors and
// 5xx responses with jittered backoff.
func NewClient(cfg ClientConfig, logger log.Logger) *http.Client {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = cfg.Timeout
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = cfg.RetryWaitMin
	client.RetryWaitMax = cfg.RetryWaitMax
	client.Backoff = retryablehttp.LinearJitterBackoff
	client.CheckRetry = retryablehttp.DefaultRetryPolicy
	client.Logger = retryableLogger{inner: logger}
	return client.StandardClient()
}

// retryableLogger adapts log.Logger to retryablehttp.LeveledLogger.
type retryableLogger struct {
	inner log.Logger
}

var _ retryablehttp.LeveledLogger = retryableLogger{}

func (r retryableLogger) Error(msg string, keysAndValues ...interface{}) {
	r.inner.Error(msg, fields(keysAndValues)...)
}

func (r retryableLogger) Info(msg string, keysAndValues ...interface{}) {
	r.inner.Debug(msg, fields(keysAndValues)...)
}

func (r retryableLogger) Debug(msg string, keysAndValues ...interface{}) {
	r.inner.Debug(msg, fields(keysAndValues)...)
}

func (r retryableLogger) Warn(msg string, keysAndValues ...interface{}) {
	r.inner.Warn(msg, fields(keysAndValues)...)
}

func fields(keysAndValues []interface{}) []log.Field {
	out := make([]log.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		out = append(out, log.Any(key, keysAndValues[i+1]))
	}
	return out
}
