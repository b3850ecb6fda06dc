package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Document is one stored value in the SQL backend.
type Document struct {
	Key       string `gorm:"column:doc_key;primaryKey;size:255"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName pins the table name across dialects.
func (Document) TableName() string { return "documents" }

// SQLBackend stores documents in a single key/value table through gorm.
type SQLBackend struct {
	db      *gorm.DB
	dialect string
}

// NewSQLBackend wraps db. Call Migrate before first use on a fresh database.
func NewSQLBackend(db *gorm.DB) *SQLBackend {
	return &SQLBackend{db: db, dialect: db.Dialector.Name()}
}

// Migrate creates the documents table if needed.
func (b *SQLBackend) Migrate(ctx context.Context) error {
	if err := b.db.WithContext(ctx).AutoMigrate(&Document{}); err != nil {
		return fmt.Errorf("migrate documents: %w", err)
	}
	return nil
}

// Name reports the dialect, e.g. "sqlite" or "postgres".
func (b *SQLBackend) Name() string { return b.dialect }

func (b *SQLBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var doc Document
	err := b.db.WithContext(ctx).Where("doc_key = ?", key).Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return doc.Value, nil
}

func (b *SQLBackend) Set(ctx context.Context, key string, value []byte) error {
	doc := Document{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (b *SQLBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
