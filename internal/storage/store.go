// Package storage persists whole serialized documents under string keys.
// Store never reports failures to its callers: reads fall back to a default
// and writes are best effort, with every problem logged and counted.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"postdesk/internal/observability"
)

// ErrNotFound is returned by a Backend when no value exists for a key.
var ErrNotFound = errors.New("storage: key not found")

var errEmptyDocument = errors.New("storage: empty document")

// Backend is a durable key-value medium holding raw documents.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Store loads and saves values of type T as JSON documents.
type Store[T any] struct {
	backend Backend
	logger  *observability.RepoLogger
	metrics *observability.StorageMetrics
	traces  *observability.TraceLayer
}

// NewStore wraps backend.
func NewStore[T any](backend Backend) *Store[T] {
	return &Store[T]{
		backend: backend,
		logger:  observability.NewRepoLogger("storage:" + backend.Name()),
		metrics: observability.NewStorageMetrics(backend.Name()),
		traces:  observability.GetTraceLayer(),
	}
}

// Backend returns the underlying medium.
func (s *Store[T]) Backend() Backend { return s.backend }

// Load returns the value stored at key, or def when it is absent, unreadable
// or cannot be decoded.
func (s *Store[T]) Load(ctx context.Context, key string, def T) T {
	defer s.metrics.TrackOperation("load")()
	ctx, span := s.traces.TraceStorageOperation(ctx, s.backend.Name(), "load")
	defer span.End()

	raw, err := s.backend.Get(ctx, key)
	if err == nil && len(bytes.TrimSpace(raw)) == 0 {
		err = errEmptyDocument
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, errEmptyDocument) {
		s.logger.LogWarn(ctx, err, "load", map[string]interface{}{
			"key":     key,
			"backend": s.backend.Name(),
		})
		return def
	}
	if err != nil {
		observability.RecordSpanError(span, err)
		s.fail(ctx, err, "load", key)
		return def
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		observability.RecordSpanError(span, err)
		s.fail(ctx, err, "decode", key)
		return def
	}
	s.logger.LogRead(ctx, map[string]interface{}{"key": key, "bytes": len(raw)})
	return v
}

// Save replaces the value at key with v. Failures are logged and dropped;
// callers keep their in-memory state as the source of truth.
func (s *Store[T]) Save(ctx context.Context, key string, v T) {
	defer s.metrics.TrackOperation("save")()
	ctx, span := s.traces.TraceStorageOperation(ctx, s.backend.Name(), "save")
	defer span.End()

	raw, err := json.Marshal(v)
	if err != nil {
		observability.RecordSpanError(span, err)
		s.fail(ctx, err, "encode", key)
		return
	}
	if err := s.backend.Set(ctx, key, raw); err != nil {
		observability.RecordSpanError(span, err)
		s.fail(ctx, err, "save", key)
	}
}

func (s *Store[T]) fail(ctx context.Context, err error, operation, key string) {
	observability.PersistenceFailures.WithLabelValues(operation).Inc()
	s.logger.LogWarn(ctx, err, operation, map[string]interface{}{
		"key":     key,
		"backend": s.backend.Name(),
	})
}
