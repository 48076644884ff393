package command

import "errors"

var (
	ErrSchedulingConflict    = errors.New("scheduling conflict")
	ErrMissingDefaultCommand = errors.New("missing default command")
	ErrInvalidDefaultCommand = errors.New("invalid default command")
)
