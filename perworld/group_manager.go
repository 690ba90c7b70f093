package perworld

import (
	"sort"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/sealdice/perworld/config"
	"github.com/sealdice/perworld/perworld/types"
)

// GroupResolver maps a world to the group that owns it.
type GroupResolver interface {
	GroupOf(world string) (types.Group, bool)
}

// GroupManager 世界 -> 分组 的查找表
type GroupManager struct {
	mu      sync.RWMutex
	groups  map[string]types.Group
	byWorld map[string]string
}

func NewGroupManager(groups []types.Group) *GroupManager {
	gm := &GroupManager{}
	gm.Reset(groups)
	return gm
}

// NewGroupManagerFromConfig builds groups from the config map. When a world is
// listed by several groups the first group in name order keeps it.
func NewGroupManagerFromConfig(cfg map[string]config.GroupConfig) *GroupManager {
	names := lo.Keys(cfg)
	sort.Strings(names)

	groups := make([]types.Group, 0, len(names))
	for _, name := range names {
		gc := cfg[name]
		groups = append(groups, types.Group{
			Name:     name,
			Worlds:   append([]string(nil), gc.Worlds...),
			GameMode: gc.DefaultGameMode,
		})
	}
	return NewGroupManager(groups)
}

// Reset replaces every group.
func (gm *GroupManager) Reset(groups []types.Group) {
	log := zap.S().Named("groups")
	byName := make(map[string]types.Group, len(groups))
	byWorld := map[string]string{}
	for _, g := range groups {
		byName[g.Name] = g
		for _, w := range g.Worlds {
			if owner, taken := byWorld[w]; taken {
				log.Warnf("world %q is in both %q and %q, keeping %q", w, owner, g.Name, owner)
				continue
			}
			byWorld[w] = g.Name
		}
	}

	gm.mu.Lock()
	defer gm.mu.Unlock()
	gm.groups = byName
	gm.byWorld = byWorld
}

func (gm *GroupManager) GroupOf(world string) (types.Group, bool) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	name, ok := gm.byWorld[world]
	if !ok {
		return types.Group{}, false
	}
	return gm.groups[name], true
}

func (gm *GroupManager) Get(name string) (types.Group, bool) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	g, ok := gm.groups[name]
	return g, ok
}

// Groups returns every group sorted by name.
func (gm *GroupManager) Groups() []types.Group {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	out := lo.Values(gm.groups)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
