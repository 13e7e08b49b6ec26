package cluster

import "errors"

var (
	UnknownClusterErr = errors.New("unknown cluster")
)
