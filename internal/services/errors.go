package services

import (
	"errors"
	"fmt"
)

// Validation failures: the request itself is malformed. Nothing was written.
var (
	ErrCannotFriendSelf       = errors.New("cannot send a friend request to yourself")
	ErrInviteParamsOutOfRange = errors.New("invite link parameters out of range")
)

// Conflicts: the request is well-formed but the current state forbids it.
var (
	ErrAlreadyFriends      = errors.New("already friends with this user")
	ErrRequestPending      = errors.New("a pending friend request already exists")
	ErrRequestNotPending   = errors.New("friend request is not pending")
	ErrNotRequestRecipient = errors.New("only the recipient can accept or reject")
	ErrInviteInactive      = errors.New("invite link has been deactivated")
	ErrInviteExpired       = errors.New("invite link has expired")
	ErrInviteExhausted     = errors.New("invite link has no uses left")
	ErrInviteAlreadyUsed   = errors.New("you already used this invite")
	ErrCannotInviteSelf    = errors.New("cannot use your own invite link")
	ErrInviteLimitReached  = errors.New("too many active invite links")
)

// Not found.
var (
	ErrRequestNotFound = errors.New("friend request not found")
	ErrInviteNotFound  = errors.New("invite link not found")
	ErrUserNotFound    = errors.New("user not found")
)

// TransientError marks a persistence or dispatch I/O failure. The caller may
// retry; the core never does.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

// Transientf wraps an I/O failure so callers can classify it as retryable.
func Transientf(format string, args ...any) error {
	return &TransientError{err: fmt.Errorf(format, args...)}
}

// IsTransient reports whether err is a retryable I/O failure.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// ReasonCode maps a service error to the stable code clients render messages
// from. Unrecognized errors map to "internal".
func ReasonCode(err error) string {
	switch {
	case errors.Is(err, ErrCannotFriendSelf):
		return "self_request"
	case errors.Is(err, ErrInviteParamsOutOfRange):
		return "validation_failed"
	case errors.Is(err, ErrAlreadyFriends):
		return "already_friends"
	case errors.Is(err, ErrRequestPending):
		return "request_pending"
	case errors.Is(err, ErrRequestNotPending):
		return "not_pending"
	case errors.Is(err, ErrNotRequestRecipient):
		return "not_recipient"
	case errors.Is(err, ErrInviteInactive):
		return "link_inactive"
	case errors.Is(err, ErrInviteExpired):
		return "link_expired"
	case errors.Is(err, ErrInviteExhausted):
		return "link_exhausted"
	case errors.Is(err, ErrInviteAlreadyUsed):
		return "link_already_used"
	case errors.Is(err, ErrCannotInviteSelf):
		return "self_invite"
	case errors.Is(err, ErrInviteLimitReached):
		return "limit_reached"
	case errors.Is(err, ErrRequestNotFound), errors.Is(err, ErrInviteNotFound), errors.Is(err, ErrUserNotFound):
		return "not_found"
	case IsTransient(err):
		return "transient"
	default:
		return "internal"
	}
}
