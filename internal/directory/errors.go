package directory

import "errors"

var (
	ErrInvalidInput = errors.New("directory: invalid input")
	ErrNotFound     = errors.New("directory: not found")
	ErrConflict     = errors.New("directory: resource conflict")
)
