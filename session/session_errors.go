package session

import "errors"

var (
	NotAuthenticatedErr = errors.New("not authenticated")
)
