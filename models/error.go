package models

import (
	"errors"
	"fmt"
)

// HealthCheckResponse is returned by the health endpoint
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}

// Error classes. Every error returned by the case packages wraps one of these.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStorage      = errors.New("storage failure")
	ErrPersistence  = errors.New("persistence failure")
)

var (
	ErrInvalidRole     = fmt.Errorf("%w: invalid role", ErrValidation)
	ErrInvalidFilter   = fmt.Errorf("%w: filter does not exist", ErrValidation)
	ErrInvalidFileType = fmt.Errorf("%w: no proper file provided", ErrValidation)
	ErrInvalidDocket   = fmt.Errorf("%w: docket number is invalid", ErrValidation)
	ErrInvalidFileName = fmt.Errorf("%w: file name is invalid", ErrValidation)
	ErrDocketExists    = fmt.Errorf("%w: docket number already exists", ErrValidation)
	ErrCaseNotFound    = fmt.Errorf("%w: case does not exist", ErrNotFound)
	ErrFileNotFound    = fmt.Errorf("%w: file cannot be found", ErrNotFound)
	ErrUploadFailed    = fmt.Errorf("%w: upload failed", ErrStorage)
	ErrPersistFailed   = fmt.Errorf("%w: could not save case", ErrPersistence)
)
