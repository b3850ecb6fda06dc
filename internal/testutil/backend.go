package testutil

import (
	"context"
	"sync"

	"postdesk/internal/storage"
)

// RecordingBackend wraps a MemoryBackend, counts writes and can be told to fail.
type RecordingBackend struct {
	*storage.MemoryBackend

	mu     sync.Mutex
	writes int
	GetErr error
	SetErr error
}

func NewRecordingBackend() *RecordingBackend {
	return &RecordingBackend{MemoryBackend: storage.NewMemoryBackend()}
}

func (b *RecordingBackend) Name() string { return "recording" }

func (b *RecordingBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	err := b.GetErr
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return b.MemoryBackend.Get(ctx, key)
}

func (b *RecordingBackend) Set(ctx context.Context, key string, value []byte) error {
	b.mu.Lock()
	b.writes++
	err := b.SetErr
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.MemoryBackend.Set(ctx, key, value)
}

// Writes is the number of Set calls, failed ones included.
func (b *RecordingBackend) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

// FailWrites makes subsequent Set calls return err (nil restores success).
func (b *RecordingBackend) FailWrites(err error) {
	b.mu.Lock()
	b.SetErr = err
	b.mu.Unlock()
}
