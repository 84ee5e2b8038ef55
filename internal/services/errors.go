package services

import "errors"

var (
	ErrForbidden     = errors.New("forbidden")
	ErrDashboardLoad = errors.New("failed to load dashboard data")
	ErrProfileLoad   = errors.New("failed to load user profile")
)
