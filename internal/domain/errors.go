package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrUpstream         = errors.New("upstream provider failure")
	ErrStorage          = errors.New("storage failure")
)
