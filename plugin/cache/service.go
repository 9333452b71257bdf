package cache

import (
	"context"
	"sync"
	"time"
)

// TextCache is what the extraction service needs from a cache.
type TextCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// ServiceConfig configures the cache service.
type ServiceConfig struct {
	Capacity        int           // Maximum number of entries (default: 256)
	TTL             time.Duration // TTL for entries (default: 10 minutes)
	CleanupInterval time.Duration // Interval for expired entry cleanup (default: 1 minute)
}

// DefaultServiceConfig returns default cache service configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Capacity:        256,
		TTL:             10 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// Service wraps an LRUCache with a background expiry sweep.
type Service struct {
	lru *LRUCache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cleanupInterval time.Duration
}

// NewService creates a cache service and starts its cleanup loop.
// Callers must Close it.
func NewService(cfg ServiceConfig) *Service {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		lru:             NewLRUCache(cfg.Capacity, cfg.TTL),
		ctx:             ctx,
		cancel:          cancel,
		cleanupInterval: cfg.CleanupInterval,
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// Close stops the cleanup loop.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

// Get retrieves a value from cache.
func (s *Service) Get(_ context.Context, key string) (string, bool) {
	return s.lru.Get(key)
}

// Set stores a value with the default TTL.
func (s *Service) Set(_ context.Context, key, value string) {
	s.lru.Set(key, value, 0)
}

// Size returns the number of entries in the cache.
func (s *Service) Size() int {
	return s.lru.Size()
}

// Stats returns the hit and miss counters.
func (s *Service) Stats() (hits, misses int64) {
	return s.lru.Stats()
}

func (s *Service) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.lru.CleanupExpired()
		}
	}
}

var _ TextCache = (*Service)(nil)
