package client

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/eshdavinci/davinci-api/pkg/api"
)

// TestErrorMessages tests the Error() strings of the error kinds
func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantError string
	}{
		{
			name:      "not found with message",
			err:       &NotFoundError{Message: "person not found"},
			wantError: "not found: person not found",
		},
		{
			name:      "not found without message",
			err:       &NotFoundError{},
			wantError: "not found",
		},
		{
			name:      "permission denied",
			err:       &PermissionDeniedError{Message: "Invalid user credentials."},
			wantError: "permission denied: Invalid user credentials.",
		},
		{
			name:      "service error with message",
			err:       &ServiceError{StatusCode: 500, Message: "database offline"},
			wantError: "backend error: database offline (status 500)",
		},
		{
			name:      "service error falls back to body",
			err:       &ServiceError{StatusCode: 502, Body: []byte("bad gateway")},
			wantError: "backend error: bad gateway (status 502)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantError {
				t.Errorf("expected error %q, got %q", tt.wantError, got)
			}
		})
	}
}

// TestClassify tests the mapping of backend replies to error kinds
func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		check    func(error) bool
		wantKind string
	}{
		{name: "401", status: http.StatusUnauthorized, check: IsPermissionDenied, wantKind: "permission denied"},
		{name: "403", status: http.StatusForbidden, check: IsPermissionDenied, wantKind: "permission denied"},
		{name: "404", status: http.StatusNotFound, check: IsNotFound, wantKind: "not found"},
		{name: "400", status: http.StatusBadRequest, check: IsServiceError, wantKind: "service"},
		{name: "500", status: http.StatusInternalServerError, check: IsServiceError, wantKind: "service"},
		{name: "503", status: http.StatusServiceUnavailable, check: IsServiceError, wantKind: "service"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(&api.ResponseError{StatusCode: tt.status, Message: "msg", Body: []byte(`{}`)})
			if !tt.check(err) {
				t.Errorf("expected %s error, got %T: %v", tt.wantKind, err, err)
			}
		})
	}
}

func TestClassifyKeepsBody(t *testing.T) {
	err := classify(&api.ResponseError{StatusCode: 500, Body: []byte(`{"oops":true}`)})

	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServiceError, got %T", err)
	}
	if se.StatusCode != 500 {
		t.Errorf("expected status 500, got %d", se.StatusCode)
	}
	if string(se.Body) != `{"oops":true}` {
		t.Errorf("unexpected body %q", se.Body)
	}
}

func TestClassifyPassesThrough(t *testing.T) {
	if classify(nil) != nil {
		t.Error("expected nil for nil error")
	}

	transport := errors.New("dial tcp: connection refused")
	if got := classify(transport); got != transport {
		t.Errorf("expected transport error unchanged, got %v", got)
	}
}

// TestErrorWrapping tests that helpers see through wrapped errors
func TestErrorWrapping(t *testing.T) {
	wrapped := fmt.Errorf("get member: %w", &NotFoundError{Message: "x"})
	if !IsNotFound(wrapped) {
		t.Error("expected IsNotFound to see through wrapping")
	}
	if IsPermissionDenied(wrapped) || IsServiceError(wrapped) {
		t.Error("wrapped not found error matched another kind")
	}

	ni := notImplemented("UpdatePerson")
	if !IsNotImplemented(ni) {
		t.Error("expected IsNotImplemented")
	}
	if got := ni.Error(); got != "UpdatePerson: operation not implemented" {
		t.Errorf("unexpected message %q", got)
	}

	unexpected := newUnexpectedResponseError("GET items/Members", errors.New("invalid character"))
	if !errors.Is(unexpected, ErrUnexpectedResponse) {
		t.Error("expected ErrUnexpectedResponse")
	}
}

func TestErrorHelpersOnNil(t *testing.T) {
	if IsNotFound(nil) || IsPermissionDenied(nil) || IsServiceError(nil) || IsNotImplemented(nil) {
		t.Error("helpers must be false for nil")
	}
}
