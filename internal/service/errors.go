package service

import "errors"

var (
	ErrSessionNotComplete     = errors.New("context session is not complete")
	ErrSessionAlreadyComplete = errors.New("context session is already complete")
	ErrSessionConflict        = errors.New("context session was modified concurrently, please retry")
	ErrEmptyMessage           = errors.New("message is required")
	ErrEmptyContext           = errors.New("context data is required")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrEmailTaken             = errors.New("email already registered")
	ErrInvalidApiKey          = errors.New("invalid api key")
)
