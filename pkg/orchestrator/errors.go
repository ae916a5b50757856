package orchestrator

import "errors"

var (
	// ErrUnauthorized: the conversation exists but belongs to another user,
	// or the user record itself is gone.
	ErrUnauthorized = errors.New("conversation does not belong to user")

	// ErrCompletion: the completion service failed or timed out.
	ErrCompletion = errors.New("completion service unavailable")

	// ErrExhausted: the model kept requesting tools past the round limit.
	// The turn still produced an apology reply for the user.
	ErrExhausted = errors.New("orchestration round limit reached")

	// ErrPersistence: a store write failed after the model had already
	// produced a reply. The reply is still valid and should be returned.
	// Write failures before the first model round are plain errors; at that
	// point there is nothing worth salvaging and the caller must see a
	// failure, not a success with empty messages.
	ErrPersistence = errors.New("failed to persist conversation state")

	// ErrEmptyMessage: the user message was empty or whitespace.
	ErrEmptyMessage = errors.New("message content is empty")
)
