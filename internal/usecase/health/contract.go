package health

import "context"

// Pinger checks that a component is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
