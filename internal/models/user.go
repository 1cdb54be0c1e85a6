package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UserID is the backend's user identifier. The API emits it as a string but
// older fixtures and some proxies send a JSON number, so both are accepted.
type UserID string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user id must be a string or number: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

// String returns the id as text.
func (id UserID) String() string {
	return string(id)
}

// User is the public profile returned by the auth endpoints.
type User struct {
	ID       UserID `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Points   int    `json:"points"`
}

// DisplayName returns the full name, falling back to the email address.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the body of POST /api/auth/signup. The server checks that
// ConfirmPassword matches Password.
type SignupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	FullName        string `json:"fullName"`
	ConfirmPassword string `json:"confirmPassword"`
}

// AuthResponse is returned by both login and signup.
type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token"`
	User    *User  `json:"user"`
}

// Health is the body of GET /health.
type Health struct {
	Status string `json:"status"`
}
