// Package repository owns the in-memory post collection and keeps it persisted.
package repository

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator hands out post ids.
type IDGenerator interface {
	NewID() string
}

// Clock supplies timestamps for createdAt/updatedAt.
type Clock interface {
	Now() time.Time
}

// UUIDGenerator issues random v4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
