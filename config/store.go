package config

import (
	"go.uber.org/atomic"
)

// A Store holds the current config. Readers always see a complete, validated config.
type Store struct {
	current atomic.Pointer[Config]
}

// NewStore returns a store holding cfg.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.current.Store(cfg)
	return s
}

// Get returns the current config. Callers must not modify it.
func (s *Store) Get() *Config {
	return s.current.Load()
}

// Swap replaces the current config, returning the previous one.
func (s *Store) Swap(cfg *Config) *Config {
	return s.current.Swap(cfg)
}
