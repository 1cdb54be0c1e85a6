package session

import "errors"

// Fallback messages used when the server supplies none.
const (
	msgLoginFailed  = "Login failed"
	msgSignupFailed = "Signup failed"
)

var (
	// ErrMissingCredentials is returned when email or password is empty.
	ErrMissingCredentials = errors.New("email and password are required")

	// ErrMissingProfile is returned when signup lacks a name or confirmation.
	ErrMissingProfile = errors.New("full name and password confirmation are required")
)

// AuthError is a failed login or signup. Message is what the user sees.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
