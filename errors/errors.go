package errors

import "fmt"

var (
	// Validation failures, surfaced to the caller for correction.
	ErrEmptyContent   = fmt.Errorf("message content is empty")
	ErrContentTooLong = fmt.Errorf("message content exceeds the maximum length")

	// Conversation resolution failures.
	ErrSelfConversation     = fmt.Errorf("a conversation requires two distinct participants")
	ErrConversationExists   = fmt.Errorf("conversation already exists for this pair")
	ErrConversationNotFound = fmt.Errorf("conversation not found")

	// Infrastructure failures, retryable by the caller.
	ErrStorageUnavailable = fmt.Errorf("storage unavailable")

	// Account and profile failures.
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrProfileNotFound    = fmt.Errorf("profile not found")

	ErrWorkerPanic = fmt.Errorf("worker panic")
)
