package apperrors

import "errors"

var (
	ErrEmptyInput       = errors.New("description or image is required")
	ErrNotFound         = errors.New("not found")
	ErrModelUnavailable = errors.New("diagnosis model is not configured")
	ErrDiagnosisFailed  = errors.New("diagnosis failed")
	ErrInvalidResponse  = errors.New("model returned an invalid diagnosis")
	ErrInvalidImage     = errors.New("image is not valid base64")
	ErrInvalidInput     = errors.New("invalid input")
)
