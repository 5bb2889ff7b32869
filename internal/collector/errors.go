package collector

import "errors"

var (
	// ErrInvalidRange is a contract violation, returned synchronously
	// instead of being folded into the outcome model.
	ErrInvalidRange = errors.New("start must be before end")

	ErrNilSource = errors.New("source must not be nil")

	ErrFetchFailed = errors.New("raw data fetch failed")
	ErrParseFailed = errors.New("response parsing failed")
)
