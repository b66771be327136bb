// Package storage persists the small set of string keys that make up an auth
// session. Every backend applies multi-key writes and deletes atomically.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Backend names accepted by SESSION_STORE.
const (
	KindMemory   = "memory"
	KindFile     = "file"
	KindPostgres = "postgres"
	KindRedis    = "redis"
)

var (
	ErrUnknownBackend = errors.New("unknown session storage backend")
	ErrEmptyKey       = errors.New("storage key is empty")
)

type Storage interface {
	// Get returns the stored values for keys. Missing keys are absent from
	// the result rather than reported as errors.
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// CheckKind validates a configured backend name.
func CheckKind(kind string) error {
	switch kind {
	case KindMemory, KindFile, KindPostgres, KindRedis:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}

// ValidateKeys rejects blank keys before a backend touches its store.
func ValidateKeys[V any](values map[string]V) error {
	for key := range values {
		if key == "" {
			return ErrEmptyKey
		}
	}
	return nil
}

type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

func (m *Memory) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := m.values[key]; ok {
			out[key] = value
		}
	}
	return out, nil
}

func (m *Memory) Set(ctx context.Context, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateKeys(values); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, value := range values {
		m.values[key] = value
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

// Len reports how many keys are stored.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}
