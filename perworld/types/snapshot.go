package types

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot 玩家在某个分组/游戏模式下的状态缓存
type Snapshot struct {
	PlayerID         uuid.UUID
	PlayerName       string
	Group            string
	State            PlayerState
	LastModifiedTime int64 // 上次修改时间
	dirty            bool
}

// NewSnapshot creates a snapshot that has not been saved yet.
func NewSnapshot(id uuid.UUID, name string, group string, state PlayerState) *Snapshot {
	return &Snapshot{
		PlayerID:         id,
		PlayerName:       name,
		Group:            group,
		State:            state,
		LastModifiedTime: time.Now().Unix(),
		dirty:            true,
	}
}

func (s *Snapshot) GameMode() GameMode {
	return s.State.GameMode
}

// Update overwrites every field in place and marks the snapshot dirty.
func (s *Snapshot) Update(name string, state PlayerState) {
	s.PlayerName = name
	s.State = state
	s.SetModified()
}

func (s *Snapshot) SetModified() {
	s.LastModifiedTime = time.Now().Unix()
	s.dirty = true
}

func (s *Snapshot) MarkSaved() {
	s.dirty = false
}

func (s *Snapshot) IsDirty() bool {
	return s.dirty
}

func (s *Snapshot) Clone() *Snapshot {
	out := *s
	out.State = s.State.Clone()
	return &out
}

// Record copies the snapshot into a record stored under the given mode.
// The record shares no memory with the snapshot.
func (s *Snapshot) Record(mode GameMode) *Record {
	return &Record{
		Key: Key{
			Group:    s.Group,
			GameMode: mode,
			PlayerID: s.PlayerID,
		},
		Name:  s.PlayerName,
		State: s.State.Clone(),
	}
}
