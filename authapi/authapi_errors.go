package authapi

import "errors"

var (
	MissingBaseURLErr   = errors.New("auth api base url is required")
	UnexpectedStatusErr = errors.New("unexpected auth api status")
)
