package port

import "context"

// Notifier delivers one-time codes to an account's registered address.
type Notifier interface {
	SendOTP(ctx context.Context, email, code string) error
}
