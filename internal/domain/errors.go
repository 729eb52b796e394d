package domain

import "errors"

var (
	ErrDashboardNotFound = errors.New("dashboard not found")
	ErrBlockNotFound     = errors.New("block not found")
	ErrAccessNotFound    = errors.New("access not found")
)
