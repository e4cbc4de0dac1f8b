package session

import "errors"

var (
	// ErrNetwork means the backend could not be reached
	ErrNetwork = errors.New("backend unreachable")
	// ErrAuthRejected means the backend refused the credentials or token
	ErrAuthRejected = errors.New("credentials rejected")
	// ErrLoginInProgress is returned when Login is called while another
	// login on the same container has not finished
	ErrLoginInProgress = errors.New("login already in progress")

	errMalformedState = errors.New("malformed persisted session")
)

const (
	msgNetwork  = "Unable to reach the server. Please try again."
	msgAuth     = "Invalid email or password."
	msgInternal = "Login failed. Please try again."
)

// ErrorMessage maps a login error to the message shown to the user
func ErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthRejected):
		return msgAuth
	case errors.Is(err, ErrNetwork):
		return msgNetwork
	default:
		return msgInternal
	}
}
