package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrQueryRequired is returned before any outbound call when the search
	// query or work key is blank.
	ErrQueryRequired = errors.New("query parameter is required")

	// ErrUpstreamUnavailable matches every *UpstreamError.
	ErrUpstreamUnavailable = errors.New("catalog unavailable")
)

// UpstreamError describes a failed call to the catalog API.
// StatusCode is zero when the request never got a response.
type UpstreamError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}
