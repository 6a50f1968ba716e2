package checkout

import "context"

// Mutator derives the next snapshot from the current one. It must be free of
// side effects because stores may call it more than once.
type Mutator func(State) (State, error)

// Store keeps checkout snapshots and replaces them whole.
type Store interface {
	Get(ctx context.Context, sessionID string) (State, error)
	Put(ctx context.Context, s State) error
	Update(ctx context.Context, sessionID string, fn Mutator) (State, error)
	Delete(ctx context.Context, sessionID string) error
}
