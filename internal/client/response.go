package client

import "errors"

const defaultErrorMessage = "An error occurred"

// Response is the uniform result of every API operation: either Success with
// Data, or a failure carrying a non-empty Error and zero Data.
type Response[T any] struct {
	Success bool
	Data    T
	Error   string
}

// Err returns nil on success and the failure message as an error otherwise.
func (r Response[T]) Err() error {
	if r.Success {
		return nil
	}
	return errors.New(r.Error)
}

func succeed[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: data}
}

func failure[T any](msg string) Response[T] {
	if msg == "" {
		msg = defaultErrorMessage
	}
	return Response[T]{Error: msg}
}
