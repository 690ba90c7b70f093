package types

import "context"

// SnapshotIO 持久化层接口
type SnapshotIO interface {
	// Save durably stores the record, replacing any previous one with the same key.
	Save(ctx context.Context, rec *Record) error
	// Load returns ErrRecordNotFound when nothing was stored for key.
	Load(ctx context.Context, key Key) (*Record, error)
	Close() error
}

// RecordLister is implemented by backends that can enumerate everything they hold.
type RecordLister interface {
	Each(ctx context.Context, fn func(rec *Record) error) error
}
