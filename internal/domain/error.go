package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotConfigured      = errors.New("billing provider not configured")
	ErrVerificationFailed = errors.New("webhook signature verification failed")
	ErrMissingUserID      = errors.New("event carries no user id")
	ErrUnknownStatus      = errors.New("unknown provider subscription status")
	ErrNoSubscription     = errors.New("user has no provider subscription")
)
