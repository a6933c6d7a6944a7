package client

import "github.com/cenkalti/backoff/v4"

// newBackOff returns the reconnection delays: retryInterval grown by
// retryMultiplier after each attempt and capped at maxRetryInterval.
// It never gives up on its own, the attempt ceiling is enforced by the client.
func newBackOff(o *options) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.retryInterval
	b.MaxInterval = o.maxRetryInterval
	b.Multiplier = o.retryMultiplier
	b.RandomizationFactor = o.retryJitter
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
