package service

import "errors"

// Errors surfaced to handlers as typed outcomes
var (
	ErrPlanLocked      = errors.New("plan is locked, unlock it before editing")
	ErrPlanNotFound    = errors.New("plan not found")
	ErrNoActiveSession = errors.New("no active arrival session")
	ErrInvalidRequest  = errors.New("invalid request")
)
