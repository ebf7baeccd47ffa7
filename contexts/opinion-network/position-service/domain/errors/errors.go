package errors

import "errors"

var (
	ErrInvalidPositionInput = errors.New("invalid position input")
	ErrPositionNotFound     = errors.New("position not found")
	ErrInvalidVisibility    = errors.New("invalid visibility scope")
	ErrPreconditionFailed   = errors.New("merge precondition not satisfied")
	ErrDuplicateKey         = errors.New("position identity conflict")
	ErrDestinationOccupied  = errors.New("destination voter already holds positions")
)
