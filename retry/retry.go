// Package retry runs operations under an exponential backoff policy.
package retry

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Policy is an exponential backoff policy. The first retry waits Initial,
// and each subsequent wait grows by Factor up to Max. A MaxAttempts of zero
// retries without bound.
type Policy struct {
	Initial     time.Duration
	Factor      float64
	Max         time.Duration
	MaxAttempts int
}

// DefaultPolicy starts at 100ms, doubles, and caps at ten seconds, retrying
// until the operation succeeds or its context is done.
var DefaultPolicy = Policy{
	Initial: 100 * time.Millisecond,
	Factor:  2,
	Max:     10 * time.Second,
}

// Backoff returns the delay before retry |attempt|, where zero is the first retry.
func (p Policy) Backoff(attempt int) time.Duration {
	var d = float64(p.Initial)
	for i := 0; i != attempt && d < float64(p.Max); i++ {
		d *= p.Factor
	}
	if d > float64(p.Max) {
		return p.Max
	}
	return time.Duration(d)
}

// Do invokes |fn| until it returns nil, a Permanent error, the policy's
// attempts are exhausted, or |ctx| is done. |desc| annotates log events and
// the returned error.
func Do(ctx context.Context, p Policy, desc string, fn func(attempt int) error) error {
	for attempt := 0; true; attempt++ {
		var err = fn(attempt)
		if err == nil {
			return nil
		}

		var perm *permanent
		if errors.As(err, &perm) {
			return errors.WithMessage(perm.err, desc)
		} else if p.MaxAttempts != 0 && attempt+1 >= p.MaxAttempts {
			return errors.WithMessagef(err, "%s (gave up after %d attempts)", desc, attempt+1)
		}

		var delay = p.Backoff(attempt)
		log.WithFields(log.Fields{
			"err":     err,
			"attempt": attempt,
			"delay":   delay,
		}).Warn(desc + " failed (will retry)")

		select {
		case <-ctx.Done():
			return errors.WithMessage(ctx.Err(), desc)
		case <-timeAfter(delay):
		}
	}
	panic("not reached")
}

// Permanent wraps |err| such that Do returns it without further retries.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanent{err: err}
}

// IsPermanent returns whether |err| was marked by Permanent.
func IsPermanent(err error) bool {
	var perm *permanent
	return errors.As(err, &perm)
}

type permanent struct{ err error }

func (p *permanent) Error() string { return p.err.Error() }
func (p *permanent) Unwrap() error { return p.err }

var timeAfter = time.After
