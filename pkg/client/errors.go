package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/eshdavinci/davinci-api/pkg/api"
)

// Common errors
var (
	// ErrNotImplemented is returned by deprecated operations when the client
	// was not built with WithDeprecatedOperations, or when the backend has
	// no equivalent.
	ErrNotImplemented = errors.New("operation not implemented")

	// ErrUnexpectedResponse is returned when a successful reply cannot be
	// decoded into the expected shape.
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// NotFoundError reports that the requested resource does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message == "" {
		return "not found"
	}
	return fmt.Sprintf("not found: %s", e.Message)
}

// PermissionDeniedError reports a missing or invalid credential, or an
// action the credential is not allowed to perform.
type PermissionDeniedError struct {
	Message string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Message)
}

// ServiceError represents any other failed reply. Body holds the raw
// response for diagnostics.
type ServiceError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("backend error: %s (status %d)", string(e.Body), e.StatusCode)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsPermissionDenied returns true if the error is authentication or
// authorization related.
func IsPermissionDenied(err error) bool {
	var pd *PermissionDeniedError
	return errors.As(err, &pd)
}

// IsServiceError returns true if the backend failed with any other status.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// IsNotImplemented returns true if the operation is not available on this client.
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}

// classify turns a backend failure into one of the public error kinds.
// Transport errors are returned unchanged.
func classify(err error) error {
	var re *api.ResponseError
	if !errors.As(err, &re) {
		return err
	}

	switch re.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &PermissionDeniedError{Message: re.Message}
	case http.StatusNotFound:
		return &NotFoundError{Message: re.Message}
	default:
		return &ServiceError{
			StatusCode: re.StatusCode,
			Message:    re.Message,
			Body:       re.Body,
		}
	}
}

// checkMemberID rejects ids no backend can hold, so they never reach a
// collection-wide endpoint.
func checkMemberID(id int) error {
	if id <= 0 {
		return &NotFoundError{Message: fmt.Sprintf("member %d", id)}
	}
	return nil
}

func notImplemented(op string) error {
	return fmt.Errorf("%s: %w", op, ErrNotImplemented)
}

func newUnexpectedResponseError(what string, err error) error {
	return fmt.Errorf("%w: decode %s: %v", ErrUnexpectedResponse, what, err)
}
