package config

import "context"

// Loader is the contract for turning declarative pipeline files into the
// agnostic model. Implementations must be side-effect free beyond reading
// the given paths.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Model, error)
}
