package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sealdice/perworld/perworld/types"
)

const (
	DefaultFlushPeriod = 5 * time.Minute
	DefaultSaveWorkers = 2
	DefaultSaveQueue   = 256
)

type Options struct {
	SeparateModes bool
	FlushPeriod   time.Duration
	SaveWorkers   int
	SaveQueue     int
	SaveRate      float64 // 每秒保存次数上限，0 为不限
	Economy       types.Economy
	Logger        *zap.SugaredLogger
}

// Stats 写回周期统计
type Stats struct {
	Cycles    uint64
	Submitted uint64
	Evicted   uint64
	Failed    uint64
}

// Manager 玩家快照缓存 + 定时写回。
// 第一个周期保存脏数据并清除标记，下个周期若未再修改则从内存移除。
type Manager struct {
	store  *Store
	io     types.SnapshotIO
	pool   *savePool
	opts   Options
	logger *zap.SugaredLogger

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	stopErr  error

	cycles    atomic.Uint64
	submitted atomic.Uint64
	evicted   atomic.Uint64
	failed    atomic.Uint64
}

func NewManager(io types.SnapshotIO, opts Options) *Manager {
	if opts.FlushPeriod <= 0 {
		opts.FlushPeriod = DefaultFlushPeriod
	}
	if opts.SaveWorkers <= 0 {
		opts.SaveWorkers = DefaultSaveWorkers
	}
	if opts.SaveQueue <= 0 {
		opts.SaveQueue = DefaultSaveQueue
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.S().Named("cache")
	}
	return &Manager{
		store:  NewStore(opts.SeparateModes),
		io:     io,
		pool:   newSavePool(io, opts.SaveWorkers, opts.SaveQueue, opts.SaveRate),
		opts:   opts,
		logger: logger,
	}
}

func (m *Manager) Store() *Store {
	return m.store
}

// StorageMode is the mode a player's data is keyed under.
func (m *Manager) StorageMode(mode types.GameMode) types.GameMode {
	return types.StorageMode(mode, m.opts.SeparateModes)
}

// Init 启动后台定时写回
func (m *Manager) Init() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.opts.FlushPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CheckForSave()
			}
		}
	}()
}

// Capture reads the player's live state, adding balances when an economy is
// available. A failing economy just leaves balances out.
func (m *Manager) Capture(p types.Player) types.PlayerState {
	state := p.State().Clone()
	state.GameMode = p.GameMode()
	if m.opts.Economy == nil {
		return state
	}
	b, err := m.opts.Economy.Balances(p)
	if err != nil {
		m.logger.Debugf("economy unavailable for %s: %v", p.Name(), err)
		state.Balances = nil
		return state
	}
	state.Balances = &b
	return state
}

// AddPlayer captures the player into the group's cache entry.
func (m *Manager) AddPlayer(p types.Player, group types.Group) *types.Snapshot {
	return m.store.Put(group, p.UniqueID(), p.Name(), m.Capture(p))
}

func (m *Manager) GetPlayer(group string, id uuid.UUID, mode types.GameMode) (*types.Snapshot, bool) {
	return m.store.Get(group, id, mode)
}

func (m *Manager) RemovePlayer(group string, id uuid.UUID, mode types.GameMode) {
	m.store.Remove(group, id, mode)
}

// SettlePlayer refreshes a cached entry from live state and marks it saved,
// for callers about to write the same state synchronously.
func (m *Manager) SettlePlayer(p types.Player, group types.Group) bool {
	return m.store.Settle(group.Name, p.UniqueID(), p.Name(), m.Capture(p))
}

// SavePlayer writes the player's live state synchronously.
func (m *Manager) SavePlayer(ctx context.Context, p types.Player, group types.Group) error {
	snap := types.NewSnapshot(p.UniqueID(), p.Name(), group.Name, m.Capture(p))
	return m.saveNow(ctx, snap.Record(m.StorageMode(snap.GameMode())))
}

func (m *Manager) saveNow(ctx context.Context, rec *types.Record) error {
	stampRecord(rec)
	if err := m.pool.SaveNow(ctx, rec); err != nil {
		return fmt.Errorf("save %s: %w", rec.Key, err)
	}
	return nil
}

func stampRecord(rec *types.Record) {
	rec.Version = types.FORMAT_VERSION.String()
	rec.SavedAt = time.Now().Unix()
}

func (m *Manager) keyOf(snap *types.Snapshot) types.Key {
	return types.Key{Group: snap.Group, GameMode: m.StorageMode(snap.GameMode()), PlayerID: snap.PlayerID}
}

// CheckForSave 执行一次写回周期：
// 未修改的快照直接移除；脏快照清除标记后异步保存。
// 保存尚未完成的快照留到下个周期，失败时还能重新标记为脏。
func (m *Manager) CheckForSave() {
	m.cycles.Add(1)

	var pending []*types.Record
	m.store.ForEach(func(group types.Group, snap *types.Snapshot) Visit {
		if !snap.IsDirty() {
			if m.pool.Pending(m.keyOf(snap)) {
				return VisitKeep
			}
			m.evicted.Add(1)
			return VisitEvict
		}
		snap.MarkSaved()
		pending = append(pending, snap.Record(m.StorageMode(snap.GameMode())))
		return VisitKeep
	})

	for _, rec := range pending {
		m.submit(rec)
	}
}

func (m *Manager) submit(rec *types.Record) {
	stampRecord(rec)
	err := m.pool.Submit(rec, func(err error) {
		if err != nil {
			m.failed.Add(1)
			m.logger.Errorf("async save %s failed: %v", rec.Key, err)
			m.revert(rec.Key)
		}
	})
	if err != nil {
		m.failed.Add(1)
		m.logger.Warnf("async save %s not queued: %v", rec.Key, err)
		m.revert(rec.Key)
		return
	}
	m.submitted.Add(1)
}

func (m *Manager) revert(key types.Key) {
	if !m.store.MarkDirty(key.Group, key.PlayerID, key.GameMode) {
		m.logger.Warnf("snapshot %s left the cache before its save failed", key)
	}
}

// Entries lists the cached (group, player, mode, dirty) tuples.
func (m *Manager) Entries() []Entry {
	return m.store.Entries()
}

func (m *Manager) Stats() Stats {
	return Stats{
		Cycles:    m.cycles.Load(),
		Submitted: m.submitted.Load(),
		Evicted:   m.evicted.Load(),
		Failed:    m.failed.Load(),
	}
}

// Stop 结束定时写回，把缓存中的每个快照同步保存一次，然后清空缓存。
// 已提交的异步保存不会被取消，会在最终保存之前等待完成。
func (m *Manager) Stop(ctx context.Context) error {
	m.stopOnce.Do(func() {
		m.stopErr = m.stop(ctx)
	})
	return m.stopErr
}

func (m *Manager) stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}

	var errs []error
	if err := m.pool.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain async saves: %w", err))
	}

	var all []*types.Record
	m.store.ForEach(func(group types.Group, snap *types.Snapshot) Visit {
		snap.MarkSaved()
		all = append(all, snap.Record(m.StorageMode(snap.GameMode())))
		return VisitKeep
	})

	for _, rec := range all {
		if err := m.saveNow(ctx, rec); err != nil {
			m.logger.Errorf("shutdown flush failed: %v", err)
			errs = append(errs, err)
		}
	}
	m.logger.Infof("flushed %d cached snapshots", len(all))

	m.store.Clear()
	return errors.Join(errs...)
}
