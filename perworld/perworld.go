package perworld

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sealdice/perworld/config"
	"github.com/sealdice/perworld/perworld/cache"
	"github.com/sealdice/perworld/perworld/types"
)

// PerWorld 按世界分组保存/恢复玩家状态。宿主在主循环里调用三个入口：
// OnWorldChange、OnPlayerExit、OnShutdown，也可以通过 Dispatch 分发事件。
type PerWorld struct {
	cfg     config.Config
	groups  GroupResolver
	io      types.SnapshotIO
	economy types.Economy
	manager *cache.Manager
	logger  *zap.SugaredLogger

	hooks hookRegistry[types.EventHook]
}

type Option func(pw *PerWorld)

// WithEconomy enables balance capture and restore.
func WithEconomy(e types.Economy) Option {
	return func(pw *PerWorld) { pw.economy = e }
}

// WithGroups replaces the resolver built from the config.
func WithGroups(r GroupResolver) Option {
	return func(pw *PerWorld) { pw.groups = r }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(pw *PerWorld) { pw.logger = l }
}

// New wires the cache and registers the built-in listeners. Call Start to begin
// periodic write-back.
func New(cfg config.Config, io types.SnapshotIO, opts ...Option) *PerWorld {
	pw := &PerWorld{
		cfg: cfg,
		io:  io,
	}
	for _, opt := range opts {
		opt(pw)
	}
	if pw.logger == nil {
		pw.logger = zap.S().Named("perworld")
	}
	if pw.groups == nil {
		pw.groups = NewGroupManagerFromConfig(cfg.Groups)
	}

	pw.manager = cache.NewManager(io, cache.Options{
		SeparateModes: cfg.SeparateGamemodeInventories,
		FlushPeriod:   cfg.FlushPeriod,
		SaveWorkers:   cfg.SaveWorkers,
		SaveQueue:     cfg.SaveQueue,
		SaveRate:      cfg.SaveRate,
		Economy:       pw.economy,
		Logger:        pw.logger.Named("cache"),
	})

	pw.registerListeners()
	return pw
}

func (pw *PerWorld) Start() {
	pw.manager.Init()
}

func (pw *PerWorld) Manager() *cache.Manager {
	return pw.manager
}

func (pw *PerWorld) debugf(template string, args ...any) {
	if pw.cfg.Debug {
		pw.logger.Debugf(template, args...)
	}
}

// groupOf resolves a world, falling back to a group-of-one with the given mode.
func (pw *PerWorld) groupOf(world string, fallback types.GameMode) types.Group {
	if g, ok := pw.groups.GroupOf(world); ok {
		return g
	}
	return types.NewWorldGroup(world, fallback)
}

// OnWorldChange caches the player's state for the group they left and, when a
// group boundary was crossed, loads their state for the group they entered.
// When the destination group forces a game mode, the state stored for that
// mode is loaded and SetGameMode is called afterwards.
func (pw *PerWorld) OnWorldChange(p types.Player, fromWorld string) {
	toWorld := p.World()
	groupFrom := pw.groupOf(fromWorld, types.GameModeNone)

	pw.debugf("player %s moved %s -> %s, caching for group %s", p.Name(), fromWorld, toWorld, groupFrom.Name)
	pw.manager.AddPlayer(p, groupFrom)

	if groupFrom.ContainsWorld(toWorld) {
		return
	}

	groupTo := pw.groupOf(toWorld, types.GameModeSurvival)

	// 强制模式时按目标模式读取，玩家到达后直接处于该模式
	mode := p.GameMode()
	force := pw.cfg.SeparateGamemodeInventories && pw.cfg.ManageGamemodes && groupTo.HasGameMode()
	if force {
		mode = groupTo.GameMode
	}

	pw.loadInto(p, groupTo, mode)
	if force {
		p.SetGameMode(mode)
	}
}

// loadInto restores the player's state for (group, mode): from the cache when
// warm, otherwise from storage, otherwise defaults.
func (pw *PerWorld) loadInto(p types.Player, group types.Group, mode types.GameMode) {
	if snap, ok := pw.manager.GetPlayer(group.Name, p.UniqueID(), mode); ok {
		pw.debugf("restoring %s in %s from cache", p.Name(), group.Name)
		pw.apply(p, snap.State, mode)
		return
	}

	key := types.Key{Group: group.Name, GameMode: pw.manager.StorageMode(mode), PlayerID: p.UniqueID()}
	rec, err := pw.io.Load(context.Background(), key)
	switch {
	case err == nil:
		pw.debugf("restoring %s in %s from storage", p.Name(), group.Name)
		pw.apply(p, rec.State, mode)
	case errors.Is(err, types.ErrRecordNotFound):
		pw.debugf("no data for %s in %s, using defaults", p.Name(), group.Name)
		pw.apply(p, types.DefaultPlayerState(mode), mode)
	default:
		pw.logger.Errorf("load %s failed, using defaults: %v", key, err)
		pw.apply(p, types.DefaultPlayerState(mode), mode)
	}
}

// apply overwrites the stored game mode with mode; only the caller decides modes.
func (pw *PerWorld) apply(p types.Player, state types.PlayerState, mode types.GameMode) {
	state = state.Clone()
	state.GameMode = mode
	p.ApplyState(state)

	if pw.economy == nil || state.Balances == nil {
		return
	}
	if err := pw.economy.Restore(p, *state.Balances); err != nil {
		pw.logger.Warnf("restore balances for %s: %v", p.Name(), err)
	}
}

// OnPlayerExit runs on quit and kick. A cached entry is refreshed and settled,
// then the live state is always written synchronously.
func (pw *PerWorld) OnPlayerExit(p types.Player) {
	group := pw.groupOf(p.World(), types.GameModeNone)

	pw.debugf("player %s left, checking cache", p.Name())
	cached := pw.manager.SettlePlayer(p, group)
	if cached {
		pw.debugf("cached data for %s found, updated and marked saved", p.Name())
	}

	pw.debugf("saving logout data for %s", p.Name())
	if err := pw.manager.SavePlayer(context.Background(), p, group); err != nil {
		pw.logger.Errorf("logout save for %s failed: %v", p.Name(), err)
		if cached {
			pw.manager.Store().MarkDirty(group.Name, p.UniqueID(), p.GameMode())
		}
	}
}

// OnShutdown stops write-back, flushes every cached snapshot, and closes storage.
func (pw *PerWorld) OnShutdown(ctx context.Context) error {
	var errs []error
	if err := pw.manager.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := pw.io.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	err := errors.Join(errs...)
	if err != nil {
		pw.logger.Errorf("shutdown: %v", err)
	}
	return err
}

// SnapshotInfo is one cached entry as seen by diagnostics.
type SnapshotInfo struct {
	Group    string         `json:"group"`
	GameMode types.GameMode `json:"gameMode"`
	Dirty    bool           `json:"dirty"`
	PlayerID string         `json:"playerId"`
}

// Snapshots lists what is currently cached.
func (pw *PerWorld) Snapshots() []SnapshotInfo {
	entries := pw.manager.Entries()
	out := make([]SnapshotInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, SnapshotInfo{
			Group:    e.Group,
			GameMode: e.GameMode,
			Dirty:    e.Dirty,
			PlayerID: e.PlayerID.String(),
		})
	}
	return out
}
