package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNetworkTimeout = errors.New("network timeout")
	ErrHTTP           = errors.New("http error")
	ErrParse          = errors.New("parse error")
	ErrNotFound       = errors.New("not found")
	ErrWriteConflict  = errors.New("write conflict")
	ErrValidation     = errors.New("validation error")
	ErrConfiguration  = errors.New("configuration error")
	ErrReadOnly       = errors.New("read-only collection")
	ErrTransient      = errors.New("transient failure")
)

// HTTPError reports a non-2xx response from an external collaborator.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error"
	}
	if e.URL == "" {
		return fmt.Sprintf("http status %d", e.Status)
	}
	return fmt.Sprintf("http status %d from %s", e.Status, e.URL)
}

// Is lets errors.Is(err, ErrHTTP) match any HTTPError.
func (e *HTTPError) Is(target error) bool {
	return target == ErrHTTP
}

// HTTPStatus extracts the response status from an error chain, if any.
func HTTPStatus(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status, true
	}
	return 0, false
}

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// StatusText maps an error to the short status line shown to a person.
func StatusText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWriteConflict):
		return "Collection changed while saving. Reload and try again."
	case errors.Is(err, ErrReadOnly):
		return "Read-only mode: add a store token to save."
	case errors.Is(err, ErrValidation):
		return "Record is incomplete: " + rootMessage(err)
	case errors.Is(err, ErrNotFound):
		return "No match found. Type a title instead?"
	case errors.Is(err, ErrNetworkTimeout):
		return "Network timed out. Try again."
	case errors.Is(err, ErrHTTP):
		if status, ok := HTTPStatus(err); ok {
			return fmt.Sprintf("Service error (HTTP %d).", status)
		}
		return "Service error."
	case errors.Is(err, ErrParse):
		return "Service returned an unreadable response."
	default:
		return "Error: " + rootMessage(err)
	}
}

func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
