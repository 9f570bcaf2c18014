package main

import "discshelf/internal/services"

// displayError shows the short status text while keeping the cause for errors.Is.
type displayError struct {
	err error
}

func (e *displayError) Error() string { return services.StatusText(e.err) }

func (e *displayError) Unwrap() error { return e.err }

func userError(err error) error {
	if err == nil {
		return nil
	}
	return &displayError{err: err}
}
