package perworld

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sealdice/perworld/config"
	"github.com/sealdice/perworld/perworld/types"
)

type memIO struct {
	mu      sync.Mutex
	saves   []types.Key
	loads   []types.Key
	records map[types.Key]*types.Record
	loadErr error
	saveErr error
	closed  bool
}

func newMemIO() *memIO {
	return &memIO{records: map[types.Key]*types.Record{}}
}

func (m *memIO) Save(_ context.Context, rec *types.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves = append(m.saves, rec.Key)
	m.records[rec.Key] = rec
	return nil
}

func (m *memIO) Load(_ context.Context, key types.Key) (*types.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads = append(m.loads, key)
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	rec, ok := m.records[key]
	if !ok {
		return nil, types.ErrRecordNotFound
	}
	return rec, nil
}

func (m *memIO) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memIO) saveKeys() []types.Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Key(nil), m.saves...)
}

type fakePlayer struct {
	id      uuid.UUID
	name    string
	world   string
	state   types.PlayerState
	applied int
}

func newFakePlayer(name, world string, mode types.GameMode) *fakePlayer {
	return &fakePlayer{id: uuid.New(), name: name, world: world, state: types.DefaultPlayerState(mode)}
}

func (p *fakePlayer) UniqueID() uuid.UUID             { return p.id }
func (p *fakePlayer) Name() string                    { return p.name }
func (p *fakePlayer) World() string                   { return p.world }
func (p *fakePlayer) GameMode() types.GameMode        { return p.state.GameMode }
func (p *fakePlayer) SetGameMode(mode types.GameMode) { p.state.GameMode = mode }
func (p *fakePlayer) State() types.PlayerState        { return p.state.Clone() }
func (p *fakePlayer) ApplyState(state types.PlayerState) {
	p.applied++
	p.state = state.Clone()
}

func (p *fakePlayer) hold(item string) {
	p.state.Inventory[0] = types.ItemStack{Type: item, Amount: 1}
}

func (p *fakePlayer) moveTo(world string) string {
	from := p.world
	p.world = world
	return from
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Groups = map[string]config.GroupConfig{
		"survival": {Worlds: []string{"world", "world_nether"}, DefaultGameMode: types.GameModeSurvival},
		"creative": {Worlds: []string{"world_creative"}, DefaultGameMode: types.GameModeCreative},
	}
	return cfg
}

func newTestPerWorld(t *testing.T, cfg config.Config, io *memIO, opts ...Option) *PerWorld {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t).Sugar())}, opts...)
	pw := New(cfg, io, opts...)
	t.Cleanup(func() { _ = pw.Manager().Stop(context.Background()) })
	return pw
}

func TestWorldChangeAcrossGroups(t *testing.T) {
	as := assert.New(t)
	io := newMemIO()
	pw := newTestPerWorld(t, testConfig(), io)

	p := newFakePlayer("alex", "world_creative", types.GameModeSurvival)
	p.hold("bedrock")

	stored := types.DefaultPlayerState(types.GameModeSurvival)
	stored.Inventory[0] = types.ItemStack{Type: "iron_pickaxe", Amount: 1}
	survivalKey := types.Key{Group: "survival", GameMode: types.GameModeSurvival, PlayerID: p.id}
	io.records[survivalKey] = &types.Record{Key: survivalKey, Name: "alex", State: stored}

	from := p.moveTo("world_nether")
	pw.OnWorldChange(p, from)

	cached, ok := pw.Manager().GetPlayer("creative", p.id, types.GameModeSurvival)
	as.True(ok, "departed group is cached")
	as.Equal("bedrock", cached.State.Inventory[0].Type)
	as.True(cached.IsDirty())

	as.Equal([]types.Key{survivalKey}, io.loads)
	as.Equal("iron_pickaxe", p.state.Inventory[0].Type, "arrived group state is applied")
	as.Empty(io.saveKeys(), "world change does not write synchronously")
}

func TestWorldChangeInsideGroupSkipsLoad(t *testing.T) {
	as := assert.New(t)
	io := newMemIO()
	pw := newTestPerWorld(t, testConfig(), io)

	p := newFakePlayer("alex", "world", types.GameModeSurvival)
	p.hold("dirt")
	pw.OnWorldChange(p, p.moveTo("world_nether"))

	as.Empty(io.loads)
	as.Zero(p.applied)
	as.Equal("dirt", p.state.Inventory[0].Type)
	_, ok := pw.Manager().GetPlayer("survival", p.id, types.GameModeSurvival)
	as.True(ok)
}

func TestWorldChangeUsesWarmCache(t *testing.T) {
	as := assert.New(t)
	io := newMemIO()
	pw := newTestPerWorld(t, testConfig(), io)

	p := newFakePlayer("alex", "world", types.GameModeSurvival)
	p.hold("dirt")
	pw.OnWorldChange(p, p.moveTo("world_creative"))
	as.Len(io.loads, 1)
	as.True(p.state.Inventory[0].IsEmpty(), "first visit gets defaults")

	p.hold("glass")
	pw.OnWorldChange(p, p.moveTo("world"))

	as.Len(io.loads, 1, "survival snapshot came from the cache")
	as.Equal("dirt", p.state.Inventory[0].Type)
}

func TestWorldChangeUnknownWorlds(t *testing.T) {
	as := assert.New(t)
	io := newMemIO()
	pw := newTestPerWorld(t, testConfig(), io)

	p := newFakePlayer("alex", "lobby", types.GameModeAdventure)
	pw.OnWorldChange(p, p.moveTo("arena"))

	_, ok := pw.Manager().GetPlayer("lobby", p.id, types.GameModeAdventure)
	as.True(ok, "unknown worlds form a group of their own")
	as.Equal([]types.Key{{Group: "arena", GameMode: types.GameModeAdventure, PlayerID: p.id}}, io.loads)
}

func TestWorldChangeLoadFailureAppliesDefaults(t *testing.T) {
	as := assert.New(t)
	io := newMemIO()
	io.loadErr = errors.New("connection reset")
	pw := newTestPerWorld(t, testConfig(), io)

	p := newFakePlayer("alex", "world", types.GameModeSurvival)
	p.hold("diamond")
	p.state.Health = 3

	as.NotPanics(func() { pw.OnWorldChange(p, p.moveTo("world_creative")) })
	as.Equal(types.MaxHealth, p.state.Health)
	as.True(p.state.Inventory[0].IsEmpty())
}

func TestWorldChangeManagesGameMode(t *testing.T) {
	cases := []struct {
		name     string
		separate bool
		manage   bool
		want     types.GameMode
	}{
		{"managed", true, true, types.GameModeCreative},
		{"not managed", true, false, types.GameModeSurvival},
		{"not separated", false, true, types.GameModeSurvival},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.SeparateGamemodeInventories = tc.separate
			cfg.ManageGamemodes = tc.manage
			pw := newTestPerWorld(t, cfg, newMemIO())

			p := newFakePlayer("alex", "world", types.GameModeSurvival)
			pw.OnWorldChange(p, p.moveTo("world_creative"))
			assert.Equal(t, tc.want, p.GameMode())
		})
	}
}

func TestWorldChangeRestoresBalances(t *testing.T) {
	as := assert.New(t)
	io := newMemIO()
	eco := NewMemoryEconomy()
	pw := newTestPerWorld(t, testConfig(), io, WithEconomy(eco))

	p := newFakePlayer("alex", "world", types.GameModeSurvival)
	eco.Deposit(p.id, 100)
	pw.OnWorldChange(p, p.moveTo("world_creative"))

	eco.Deposit(p.id, 50)
	pw.OnWorldChange(p, p.moveTo("world"))

	b, err := eco.Balances(p)
	as.NoError(err)
	as.Equal(100.0, b.Balance, "balance follows the survival group")
}

func TestPlayerExitWithoutCacheSavesOnce(t *testing.T) {
	as := assert.New(t)
	io := newMemIO()
	pw := newTestPerWorld(t, testConfig(), io)

	p := newFakePlayer("alex", "world_nether", types.GameModeSurvival)
	pw.OnPlayerExit(p)

	as.Equal([]types.Key{{Group: "survival", GameMode: types.GameModeSurvival, PlayerID: p.id}}, io.saveKeys())
	as.Zero(pw.Manager().Store().Len())
}

func TestPlayerExitSettlesCachedSnapshot(t *testing.T) {
	as := assert.New(t)
	io := newMemIO()
	pw := newTestPerWorld(t, testConfig(), io)

	p := newFakePlayer("alex", "world", types.GameModeSurvival)
	pw.OnWorldChange(p, p.moveTo("world_creative"))
	pw.OnWorldChange(p, p.moveTo("world"))

	p.hold("emerald")
	pw.OnPlayerExit(p)

	snap, ok := pw.Manager().GetPlayer("survival", p.id, types.GameModeSurvival)
	require.True(t, ok)
	as.False(snap.IsDirty(), "exit settles the cached entry")
	as.Equal("emerald", snap.State.Inventory[0].Type)
	as.Len(io.saveKeys(), 1)

	pw.Manager().CheckForSave()
	_, ok = pw.Manager().GetPlayer("survival", p.id, types.GameModeSurvival)
	as.False(ok, "settled entry is evicted by the next cycle")

	survivalKey := types.Key{Group: "survival", GameMode: types.GameModeSurvival, PlayerID: p.id}
	as.Equal(1, lo.Count(io.saveKeys(), survivalKey), "settled entry is not written again")
}


func TestPlayerExitSaveFailureKeepsDirty(t *testing.T) {
	as := assert.New(t)
	io := newMemIO()
	pw := newTestPerWorld(t, testConfig(), io)

	p := newFakePlayer("alex", "world", types.GameModeSurvival)
	pw.OnWorldChange(p, p.moveTo("world_creative"))
	pw.OnWorldChange(p, p.moveTo("world"))

	io.saveErr = errors.New("disk full")
	as.NotPanics(func() { pw.OnPlayerExit(p) })

	snap, ok := pw.Manager().GetPlayer("survival", p.id, types.GameModeSurvival)
	as.True(ok)
	as.True(snap.IsDirty())
}

func TestShutdownFlushesEveryCachedSnapshot(t *testing.T) {
	as := assert.New(t)
	io := newMemIO()
	pw := New(testConfig(), io, WithLogger(zaptest.NewLogger(t).Sugar()))
	pw.Start()

	a := newFakePlayer("a", "world", types.GameModeSurvival)
	b := newFakePlayer("b", "world_creative", types.GameModeCreative)
	pw.OnWorldChange(a, a.moveTo("world_creative"))
	pw.OnWorldChange(b, b.moveTo("world"))
	as.Len(pw.Snapshots(), 2)

	as.NoError(pw.OnShutdown(context.Background()))
	as.Len(io.saveKeys(), 2)
	as.Empty(pw.Snapshots())
	as.True(io.closed)
}

func TestSnapshotsIntrospection(t *testing.T) {
	pw := newTestPerWorld(t, testConfig(), newMemIO())

	p := newFakePlayer("alex", "world", types.GameModeSurvival)
	pw.OnWorldChange(p, p.moveTo("world_creative"))

	assert.Equal(t, []SnapshotInfo{{
		Group:    "survival",
		GameMode: types.GameModeSurvival,
		Dirty:    true,
		PlayerID: p.id.String(),
	}}, pw.Snapshots())
}

func TestDispatchRoutesEvents(t *testing.T) {
	as := assert.New(t)
	io := newMemIO()
	pw := newTestPerWorld(t, testConfig(), io)

	p := newFakePlayer("alex", "world", types.GameModeSurvival)
	pw.Dispatch(&types.PlayerEvent{Type: types.EventWorldChange, Player: p, FromWorld: p.moveTo("world_creative")})
	as.Len(pw.Snapshots(), 1)

	pw.Dispatch(&types.PlayerEvent{Type: types.EventKick, Player: p})
	as.Len(io.saveKeys(), 1)

	pw.Dispatch(nil)
	pw.Dispatch(&types.PlayerEvent{Type: types.EventQuit})
	as.Len(io.saveKeys(), 1)
}

func TestDispatchStopCancelsBuiltIn(t *testing.T) {
	as := assert.New(t)
	io := newMemIO()
	pw := newTestPerWorld(t, testConfig(), io)

	var seen []types.EventType
	handle, err := pw.RegisterEventHook("guard", types.HookPriorityHigh, func(evt *types.PlayerEvent) types.HookResult {
		seen = append(seen, evt.Type)
		return types.HookResultStop
	})
	as.NoError(err)

	p := newFakePlayer("alex", "world", types.GameModeSurvival)
	pw.Dispatch(&types.PlayerEvent{Type: types.EventQuit, Player: p})
	as.Equal([]types.EventType{types.EventQuit}, seen)
	as.Empty(io.saveKeys())

	as.True(pw.UnregisterEventHook(handle))
	pw.Dispatch(&types.PlayerEvent{Type: types.EventQuit, Player: p})
	as.Len(io.saveKeys(), 1)
}

func TestDispatchSurvivesBadHooks(t *testing.T) {
	as := assert.New(t)
	io := newMemIO()
	pw := newTestPerWorld(t, testConfig(), io)

	var nilHook types.EventHook
	_, err := pw.RegisterEventHook("nil", types.HookPriorityHigh, nilHook)
	as.Error(err, "a nil hook is refused")

	_, err = pw.RegisterEventHook("broken", types.HookPriorityHigh, func(*types.PlayerEvent) types.HookResult {
		panic("boom")
	})
	as.NoError(err)

	p := newFakePlayer("alex", "world", types.GameModeSurvival)
	as.NotPanics(func() {
		pw.Dispatch(&types.PlayerEvent{Type: types.EventQuit, Player: p})
	})
	as.Len(io.saveKeys(), 1, "handlers after a panicking hook still run")
}

func TestWorldChangeForcedModeLoadsTargetSlot(t *testing.T) {
	as := assert.New(t)
	cfg := testConfig()
	cfg.ManageGamemodes = true
	io := newMemIO()
	pw := newTestPerWorld(t, cfg, io)

	p := newFakePlayer("alex", "world_creative", types.GameModeCreative)
	p.hold("bedrock")

	pw.OnWorldChange(p, p.moveTo("world_nether"))

	_, ok := pw.Manager().GetPlayer("creative", p.id, types.GameModeCreative)
	as.True(ok)
	as.Equal([]types.Key{{Group: "survival", GameMode: types.GameModeSurvival, PlayerID: p.id}}, io.loads)
	as.Equal(types.GameModeSurvival, p.GameMode())
	as.Equal(types.GameModeSurvival, p.state.GameMode)
}
