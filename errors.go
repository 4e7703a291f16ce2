package iblshadows

import "errors"

var (
	ErrInvalidResolution  = errors.New("iblshadows: resolution must be at least 1")
	ErrPrePassUnavailable = errors.New("iblshadows: pre-pass renderer unavailable")
)
