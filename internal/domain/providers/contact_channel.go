package providers

import "context"

// ContactChannel reaches people outside the app. Both legs are best effort:
// they report whether the message went through and never fail the caller.
type ContactChannel interface {
	// Call places a voice call carrying message to phone
	Call(ctx context.Context, phone, message string) bool

	// SendSMS sends message to phone as a text message
	SendSMS(ctx context.Context, phone, message string) bool
}
