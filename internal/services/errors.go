package services

import "errors"

// Sentinel errors for the payment domain. Services wrap these with context
// via fmt.Errorf("%w: ..."); endpoints map them to HTTP codes with errors.Is.
var (
	ErrValidation  = errors.New("invalid input")
	ErrSignature   = errors.New("invalid signature")
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("forbidden")
	ErrConflict    = errors.New("conflict")
	ErrExpired     = errors.New("expired")
	ErrGateway     = errors.New("payment gateway error")
	ErrPersistence = errors.New("persistence failure")
)
