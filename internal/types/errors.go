package types

import "errors"

// Error taxonomy shared by strategies, the store and the orchestrator.
// Components wrap these with fmt.Errorf("...: %w", ...); test with errors.Is.
var (
	// ErrMalformedRecord marks a raw payload that cannot become a Record.
	// The batch skips it and continues.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrRateLimitExceeded is returned once source-side throttling outlasts the retry budget.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrSourceUnavailable covers network and endpoint failures after alternates are exhausted.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrUnknownAccount is returned by profile lookups for a handle the source does not know.
	// It does not trigger fallback.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrPersistence is fatal to the current request and not retried.
	ErrPersistence = errors.New("persistence error")
)

// IsRetrievalFailure reports whether err should trigger strategy fallback
func IsRetrievalFailure(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded) || errors.Is(err, ErrSourceUnavailable)
}
