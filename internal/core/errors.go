package core

import "errors"

// Error kinds shared across the pipeline. Callers classify failures with
// errors.Is; wrapped detail stays available through the chain.
var (
	// ErrInvalidInput marks an empty or malformed document or persona
	// selection. The pipeline halts before any external call is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable marks a provider that kept rate-limiting after
	// retry exhaustion. The current run halts; other runs are unaffected.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrProviderError marks any other completion or embedding failure.
	ErrProviderError = errors.New("provider error")

	// ErrIrrelevant marks a document whose keyword extraction came back
	// empty even after the prefix-chunk retry. This is a terminal business
	// outcome, not a fault; it is logged as a SkippedRecord.
	ErrIrrelevant = errors.New("document not relevant to any persona")
)
