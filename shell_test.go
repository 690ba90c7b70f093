package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sealdice/perworld/config"
	"github.com/sealdice/perworld/perworld"
	"github.com/sealdice/perworld/perworld/types"
	"github.com/sealdice/perworld/storage"
)

// keepOpen ignores Close so records can be inspected after shutdown.
type keepOpen struct {
	*storage.MemoryIO
}

func (keepOpen) Close() error { return nil }

func newTestShell(t *testing.T) (*shell, *storage.MemoryIO, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Groups = map[string]config.GroupConfig{
		"survival": {Worlds: []string{"world", "world_nether"}, DefaultGameMode: types.GameModeSurvival},
		"creative": {Worlds: []string{"world_creative"}, DefaultGameMode: types.GameModeCreative},
	}
	cfg.ManageGamemodes = true

	backend := storage.NewMemoryIO()
	economy := perworld.NewMemoryEconomy()
	pw := perworld.New(cfg, keepOpen{backend}, perworld.WithEconomy(economy), perworld.WithLogger(zaptest.NewLogger(t).Sugar()))
	out := &bytes.Buffer{}
	return newShell(pw, economy, out), backend, out
}

func run(t *testing.T, sh *shell, lines ...string) {
	t.Helper()
	for _, line := range lines {
		require.NoError(t, sh.Exec(line), line)
	}
}

func TestShellRoundTrip(t *testing.T) {
	as := assert.New(t)
	sh, backend, _ := newTestShell(t)

	run(t, sh,
		"join alex world",
		"give alex diamond 3",
		"move alex world_creative",
	)
	p := sh.players["alex"]
	as.Equal(types.GameModeCreative, p.GameMode(), "managed group forces the mode")
	as.True(p.state.Inventory[0].IsEmpty(), "creative inventory starts empty")

	run(t, sh,
		"give alex glass",
		"move alex world",
	)
	as.Equal(types.GameModeSurvival, p.GameMode())
	as.Equal("diamond", p.state.Inventory[0].Type)
	as.Equal(3, p.state.Inventory[0].Amount)

	run(t, sh, "quit alex")
	as.Equal(1, backend.Len(), "exit writes the current group")

	require.NoError(t, sh.Close(context.Background()))
	as.Equal(2, backend.Len(), "shutdown flushes the creative snapshot")
}

func TestShellRejoinKeepsIdentity(t *testing.T) {
	sh, _, _ := newTestShell(t)
	t.Cleanup(func() { _ = sh.Close(context.Background()) })

	run(t, sh, "join alex world")
	id := sh.players["alex"].id
	run(t, sh, "kick alex", "join alex world")
	assert.Equal(t, id, sh.players["alex"].id)
}

func TestShellErrors(t *testing.T) {
	as := assert.New(t)
	sh, _, _ := newTestShell(t)
	t.Cleanup(func() { _ = sh.Close(context.Background()) })

	as.Error(sh.Exec("move ghost world"))
	as.Error(sh.Exec("join alex"))
	as.Error(sh.Exec("teleport alex"))
	run(t, sh, "join alex world")
	as.Error(sh.Exec("join alex world"))
	as.Error(sh.Exec("mode alex hardcore"))
	as.Error(sh.Exec("give alex dirt -1"))
	as.ErrorIs(sh.Exec("exit"), errExit)
	as.NoError(sh.Exec("   "))
}

func TestShellDump(t *testing.T) {
	sh, _, out := newTestShell(t)
	t.Cleanup(func() { _ = sh.Close(context.Background()) })

	run(t, sh, "dump")
	assert.Contains(t, out.String(), "cache is empty")

	run(t, sh, "join alex world", "move alex world_creative", "dump", "tick")
	assert.Contains(t, out.String(), "alex")
	assert.Contains(t, out.String(), "dirty=true")
	assert.Contains(t, out.String(), "cycle 1: submitted 1")
}
