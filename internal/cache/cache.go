package cache

import (
	"context"
	"time"
)

// Cache is a small JSON value cache used for the dashboard summary and the
// restock advisor output.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Noop struct{}

func (Noop) Get(_ context.Context, _ string, _ any) (bool, error) {
	return false, nil
}

func (Noop) Set(_ context.Context, _ string, _ any, _ time.Duration) error {
	return nil
}

func (Noop) Delete(_ context.Context, _ string) error {
	return nil
}
