package mainboilerplate

import (
	"time"

	"go.cinedex.dev/core/retry"
)

// RetryConfig configures the backoff of retried operations.
type RetryConfig struct {
	Initial     time.Duration `long:"initial" env:"INITIAL" default:"100ms" description:"Delay before the first retry"`
	Max         time.Duration `long:"max" env:"MAX" default:"10s" description:"Maximum delay between retries"`
	MaxAttempts int           `long:"max-attempts" env:"MAX_ATTEMPTS" default:"0" description:"Attempts before giving up. Zero retries without bound"`
}

// Policy of the RetryConfig.
func (c RetryConfig) Policy() retry.Policy {
	var p = retry.DefaultPolicy
	p.Initial, p.Max, p.MaxAttempts = c.Initial, c.Max, c.MaxAttempts
	return p
}
