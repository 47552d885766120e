package appcache

import (
	"context"
	"sync"
)

// The process-wide default instance lives behind Init/Default so only the
// composition root decides its configuration; collaborators receive the
// *AppCache by injection and never reach for package state themselves.
var (
	defaultMu    sync.Mutex
	defaultCache *AppCache
)

// Init constructs the default instance. It fails if one already exists.
func Init(ctx context.Context, cfg Config, opts ...Option) (*AppCache, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultCache != nil {
		return defaultCache, nil
	}
	a, err := New(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	defaultCache = a
	return a, nil
}

// Default returns the instance created by Init, or nil when Init has not
// been called.
func Default() *AppCache {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultCache
}

// CloseDefault closes and forgets the default instance.
func CloseDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultCache != nil {
		defaultCache.Close()
		defaultCache = nil
	}
}
