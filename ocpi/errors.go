package ocpi

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyRegistered  = errors.New("client is already registered")
	ErrNotRegistered      = errors.New("client is not registered")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrClientAPI          = errors.New("unable to use client api")
	ErrTimeout            = errors.New("awaiting result timed out")
)
