package domain

import "errors"

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrActiveSessionExists = errors.New("active session already exists for user")
	ErrSessionCreateRace   = errors.New("session creation retries exhausted")
	ErrInvalidRole         = errors.New("invalid message role")
	ErrCacheMiss           = errors.New("key not found in fast store")
)
