package errors

import "fmt"

// Validation errors: rejected before any persistence, never retried.
var (
	ErrEmptyContent        = fmt.Errorf("content must not be empty")
	ErrContentTooLong      = fmt.Errorf("content exceeds the maximum length")
	ErrSelfConversation    = fmt.Errorf("sender and receiver must be different users")
	ErrInvalidPassword     = fmt.Errorf("password does not meet the requirements")
	ErrInvalidRegistration = fmt.Errorf("registration details are invalid")
	ErrValidation          = fmt.Errorf("submission does not meet the form rules")
)

// Identifier and lookup errors.
var (
	ErrInvalidIdentifier = fmt.Errorf("malformed identifier")
	ErrUserNotFound      = fmt.Errorf("user not found")
	ErrTopicNotFound     = fmt.Errorf("topic not found")
	ErrPostNotFound      = fmt.Errorf("post not found")
)

// ErrPersistence marks a store failure. A send that hits it is a failed
// send: the user must resend, nothing is queued.
var ErrPersistence = fmt.Errorf("persistence failure")

// Auth and permission errors.
var (
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrForbidden          = fmt.Errorf("operation not allowed for this user")
)
