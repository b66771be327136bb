package apiclient

import "errors"

var (
	ErrRequestFailed = errors.New("api request failed")
	ErrNetwork       = errors.New("network error")
	ErrNoTransport   = errors.New("apiclient: transport is required")
	ErrInvalidBase   = errors.New("apiclient: invalid base url")
)
