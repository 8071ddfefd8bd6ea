package api

import "errors"

var (
	ErrNotFound    = errors.New("no data for this contract/symbol")
	ErrRateLimited = errors.New("rate limited by API")
	ErrAuthFailed  = errors.New("authentication failed")
)
