package cache

import (
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/sealdice/perworld/perworld/types"
)

// Visit tells ForEach what to do with the snapshot it just visited.
type Visit int

const (
	VisitKeep Visit = iota
	VisitEvict
)

// Entry 缓存条目概要，用于调试
type Entry struct {
	Group    string
	PlayerID uuid.UUID
	GameMode types.GameMode
	Dirty    bool
}

type groupSlot struct {
	group     types.Group
	snapshots []*types.Snapshot
}

// Store 分组 -> 快照集合。
// 每个玩家在一个分组内：开启模式分离时每个模式最多一份，否则只有一份。
type Store struct {
	mu            sync.Mutex
	separateModes bool
	groups        map[string]*groupSlot
	order         []string // 分组插入顺序，保证遍历稳定
}

func NewStore(separateModes bool) *Store {
	return &Store{
		separateModes: separateModes,
		groups:        map[string]*groupSlot{},
	}
}

func (s *Store) SeparateModes() bool {
	return s.separateModes
}

func (s *Store) matches(snap *types.Snapshot, id uuid.UUID, mode types.GameMode) bool {
	if snap.PlayerID != id {
		return false
	}
	return !s.separateModes || snap.GameMode() == mode
}

func (s *Store) find(group string, id uuid.UUID, mode types.GameMode) *types.Snapshot {
	slot, ok := s.groups[group]
	if !ok {
		return nil
	}
	for _, snap := range slot.snapshots {
		if s.matches(snap, id, mode) {
			return snap
		}
	}
	return nil
}

// Put captures state under group: an existing matching snapshot is overwritten
// in place, otherwise a new one is added. Either way the result is dirty.
func (s *Store) Put(group types.Group, id uuid.UUID, name string, state types.PlayerState) *types.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap := s.find(group.Name, id, state.GameMode); snap != nil {
		snap.Update(name, state)
		return snap.Clone()
	}

	slot, ok := s.groups[group.Name]
	if !ok {
		slot = &groupSlot{group: group}
		s.groups[group.Name] = slot
		s.order = append(s.order, group.Name)
	}
	snap := types.NewSnapshot(id, name, group.Name, state)
	slot.snapshots = append(slot.snapshots, snap)
	return snap.Clone()
}

// Get returns a copy of the snapshot, or false when nothing is cached.
func (s *Store) Get(group string, id uuid.UUID, mode types.GameMode) (*types.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.find(group, id, mode)
	if snap == nil {
		return nil, false
	}
	return snap.Clone(), true
}

// Settle refreshes an existing snapshot and marks it saved. It reports whether
// the snapshot was cached.
func (s *Store) Settle(group string, id uuid.UUID, name string, state types.PlayerState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.find(group, id, state.GameMode)
	if snap == nil {
		return false
	}
	snap.Update(name, state)
	snap.MarkSaved()
	return true
}

// MarkDirty flags a cached snapshot for another save attempt.
func (s *Store) MarkDirty(group string, id uuid.UUID, mode types.GameMode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.find(group, id, mode)
	if snap == nil {
		return false
	}
	snap.SetModified()
	return true
}

// Remove deletes the matching snapshots and returns how many went away.
// Removing something absent is a no-op.
func (s *Store) Remove(group string, id uuid.UUID, mode types.GameMode) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.groups[group]
	if !ok {
		return 0
	}
	before := len(slot.snapshots)
	slot.snapshots = lo.Reject(slot.snapshots, func(snap *types.Snapshot, _ int) bool {
		return s.matches(snap, id, mode)
	})
	removed := before - len(slot.snapshots)
	s.pruneLocked(group)
	return removed
}

func (s *Store) pruneLocked(group string) {
	slot, ok := s.groups[group]
	if !ok || len(slot.snapshots) > 0 {
		return
	}
	delete(s.groups, group)
	s.order = lo.Without(s.order, group)
}

// ForEach visits every snapshot in group insertion order. The visitor gets the
// live snapshot and may change its dirty flag; it must not call back into the
// store. Snapshots answered with VisitEvict are removed after the walk.
func (s *Store) ForEach(visit func(group types.Group, snap *types.Snapshot) Visit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type candidate struct {
		group string
		snap  *types.Snapshot
	}
	var evict []candidate

	for _, name := range s.order {
		slot := s.groups[name]
		for _, snap := range slot.snapshots {
			if visit(slot.group, snap) == VisitEvict {
				evict = append(evict, candidate{group: name, snap: snap})
			}
		}
	}

	// 第二遍再删除，避免遍历中修改
	for _, c := range evict {
		slot, ok := s.groups[c.group]
		if !ok {
			continue
		}
		slot.snapshots = lo.Without(slot.snapshots, c.snap)
		s.pruneLocked(c.group)
	}
}

// Entries lists (group, player, mode, dirty) for every cached snapshot.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Entry
	for _, name := range s.order {
		for _, snap := range s.groups[name].snapshots {
			out = append(out, Entry{
				Group:    name,
				PlayerID: snap.PlayerID,
				GameMode: snap.GameMode(),
				Dirty:    snap.IsDirty(),
			})
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lo.SumBy(lo.Values(s.groups), func(slot *groupSlot) int {
		return len(slot.snapshots)
	})
}

func (s *Store) GroupLen(group string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot, ok := s.groups[group]; ok {
		return len(slot.snapshots)
	}
	return 0
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups = map[string]*groupSlot{}
	s.order = nil
}
