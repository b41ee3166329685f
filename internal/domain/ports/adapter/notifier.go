package adapter

import "context"

// AdminNotifier pushes operational events to the administrators' channel.
// Failures are logged, never propagated into the lifecycle.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, message string) error
}
