// Package notify tells operators about events they need to act on, such as a
// newly provisioned feedback spreadsheet.
package notify

import "context"

// Notifier publishes a human-readable message to an operator channel.
type Notifier interface {
	Publish(ctx context.Context, message string) error
}
