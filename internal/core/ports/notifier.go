package ports

import "context"

// PasswordResetNotice is the message handed to the notification sink.
type PasswordResetNotice struct {
	Email     string
	FirstName string
	Token     string
}

// Notifier delivers user-facing notifications. Implementations must not
// block the caller on the delivery itself.
type Notifier interface {
	NotifyPasswordReset(ctx context.Context, notice PasswordResetNotice) error
}
