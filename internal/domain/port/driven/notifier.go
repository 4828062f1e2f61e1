package driven

import "context"

// Notifier relays a short text message to a chat channel after a mutation.
// Callers treat it as fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
