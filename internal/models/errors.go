package models

import "errors"

// Sentinel errors shared across the client.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("resource not found")
	ErrNotConnected = errors.New("not connected")
	ErrInvalidInput = errors.New("invalid input")
)
