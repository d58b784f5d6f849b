package service

import "errors"

var (
	ErrInvalidCommand  = errors.New("invalid command")
	ErrInvalidSettings = errors.New("invalid settings")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrAuthDisabled    = errors.New("authentication is disabled")
	ErrNoPersistence   = errors.New("database persistence is disabled")
)
