package policies

import "context"

// Notifier delivers a templated message to a customer. Delivery is best effort.
type Notifier interface {
	Send(ctx context.Context, to string, template string, data any) error
}
