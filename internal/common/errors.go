package common

import "errors"

// Errors shared by every service. Handlers map them onto HTTP status codes.
var (
	ErrRecordNotFound        = errors.New("record not found")
	ErrForbidden             = errors.New("forbidden")
	ErrAuthenticationFailure = errors.New("unauthorized access")
)
