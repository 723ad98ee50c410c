package client

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a response body has an unexpected shape.
var ErrMalformedResponse = errors.New("malformed response")

// FetchError is returned for any failed market-data request: non-2xx status,
// transport failure or undecodable body.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("error fetching %s: %s", e.URL, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("error fetching %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("error fetching %s", e.URL)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
