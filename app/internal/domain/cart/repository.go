package cart

import "context"

// Provider exposes the externally owned cart to checkout.
type Provider interface {
	Snapshot(ctx context.Context, sessionID string) (Snapshot, error)
	Clear(ctx context.Context, sessionID string) error
}
