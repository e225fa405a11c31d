package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthenticated is matched by every AuthError via errors.Is
var ErrUnauthenticated = errors.New("not authenticated")

// AuthKind distinguishes why authentication failed
type AuthKind int

const (
	// InvalidCredentials is a 401 from the login endpoint
	InvalidCredentials AuthKind = iota + 1
	// AccountInactive is a 403 from the login endpoint
	AccountInactive
	// SessionExpired is a 401 from any authenticated endpoint
	SessionExpired
)

func (k AuthKind) String() string {
	switch k {
	case InvalidCredentials:
		return "invalid credentials"
	case AccountInactive:
		return "account inactive"
	case SessionExpired:
		return "session expired"
	default:
		return "unauthenticated"
	}
}

// AuthError reports a credential rejection or an expired session
type AuthError struct {
	Kind    AuthKind
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

// Is lets errors.Is(err, ErrUnauthenticated) match
func (e *AuthError) Is(target error) bool {
	return target == ErrUnauthenticated
}

// RequestError reports any other non-success response or an undecodable body
type RequestError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Status
	}
	return 0
}

// IsNotFound reports whether err is a 404
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsSessionExpired reports whether err came from a 401 on an authenticated call
func IsSessionExpired(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Kind == SessionExpired
}
