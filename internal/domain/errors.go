package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout             = errors.New("request timed out")
	ErrEmptyResult         = errors.New("no data returned")
	ErrUnsupportedRange    = errors.New("history range not supported")
	ErrBusy                = errors.New("chart load already in progress")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrNoSelection         = errors.New("no coin selected")
	ErrUpstreamUnavailable = errors.New("upstream temporarily unavailable")
)

// HTTPError reports a non-success status from an upstream service.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d (%s) from %s", e.StatusCode, e.Status, e.URL)
}
