package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidChunking signals a chunk size/overlap combination with a
	// non-positive stride. Configuration error, fails fast.
	ErrInvalidChunking = errors.New("invalid chunking: overlap must be smaller than size")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a text generation provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
	// ErrFetchFailed signals that a page could not be scraped.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrCapabilityUnavailable signals a missing credential or unconfigured
	// external dependency. Callers degrade, they do not abort.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)
