package errors

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid network score input")
	ErrBallotUnavailable  = errors.New("ballot items unavailable for voter")
	ErrSocialGraphFailure = errors.New("social graph lookup failed")
)
