package carteira

import "errors"

// Errors returned by History. Callers match them with errors.Is.
var (
	// ErrInvalidInput reports a malformed ticker or range. The wrapping error
	// message is meant to be shown to the caller verbatim.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAssetNotFound reports that the primary series has no usable price.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrInternal reports an unexpected failure during reconciliation.
	ErrInternal = errors.New("internal error")
)
