// Package retry runs transient-failure-prone operations with
// configurable backoff. The retry predicate leans on the error
// taxonomy in pkg/errors: network, rate-limit and server errors are
// retried; auth and not-found errors fail immediately.
//
//	err := retry.Do(func() error {
//		return notifier.Post(ctx, message)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     retry.DefaultExponentialBackoff(),
//		RetryIf:     retry.DefaultRetryIf,
//		Context:     ctx,
//	})
package retry
