package service

import "errors"

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrEmailTaken is returned when signing up with an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUnauthorized indicates a missing, expired or forged session token.
	ErrUnauthorized = errors.New("could not validate credentials")
	// ErrValidation wraps input that fails field rules.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned for unknown posts and users.
	ErrNotFound = errors.New("not found")
	// ErrNotOwner is returned when a user mutates a post they do not own.
	ErrNotOwner = errors.New("post not found or you don't have permission to modify it")
	// ErrMediaTooLarge is returned when an upload exceeds the configured limit.
	ErrMediaTooLarge = errors.New("file too large")
)
