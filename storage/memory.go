package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/sealdice/perworld/perworld/types"
	"github.com/sealdice/perworld/utils"
)

// MemoryIO 基于内存的 SnapshotIO 实现，保存编码后的数据，读出的记录与存储互不影响
type MemoryIO struct {
	mu    sync.RWMutex
	items map[types.Key][]byte
}

func NewMemoryIO() *MemoryIO {
	return &MemoryIO{items: map[types.Key][]byte{}}
}

func (m *MemoryIO) Save(ctx context.Context, rec *types.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		return types.ErrClosed
	}
	m.items[rec.Key] = data
	return nil
}

func (m *MemoryIO) Load(ctx context.Context, key types.Key) (*types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	data, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, types.ErrRecordNotFound
	}
	return decodeRecord(data)
}

// Each visits records in packed-key order.
func (m *MemoryIO) Each(ctx context.Context, fn func(rec *types.Record) error) error {
	m.mu.RLock()
	keys := lo.Keys(m.items)
	m.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return utils.PackKey(keys[i]) < utils.PackKey(keys[j]) })

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := m.Load(ctx, key)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryIO) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryIO) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	return nil
}
