package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestParseGameMode(t *testing.T) {
	as := assert.New(t)

	mode, err := ParseGameMode("CREATIVE")
	as.NoError(err)
	as.Equal(GameModeCreative, mode)

	mode, err = ParseGameMode(" survival ")
	as.NoError(err)
	as.Equal(GameModeSurvival, mode)

	mode, err = ParseGameMode("")
	as.NoError(err)
	as.Equal(GameModeNone, mode)

	_, err = ParseGameMode("hardcore")
	as.Error(err)
}

func TestGameModeYAML(t *testing.T) {
	as := assert.New(t)

	var g Group
	err := yaml.Unmarshal([]byte("name: creative\nworlds: [world_creative]\ndefault-gamemode: CREATIVE\n"), &g)
	as.NoError(err)
	as.Equal(GameModeCreative, g.GameMode)
	as.True(g.HasGameMode())
	as.True(g.ContainsWorld("world_creative"))
	as.False(g.ContainsWorld("world_nether"))

	out, err := yaml.Marshal(g)
	as.NoError(err)
	as.Contains(string(out), "default-gamemode: creative")
}

func TestStorageMode(t *testing.T) {
	as := assert.New(t)
	as.Equal(GameModeCreative, StorageMode(GameModeCreative, true))
	as.Equal(GameModeSurvival, StorageMode(GameModeCreative, false))
	as.Equal(GameModeSurvival, StorageMode(GameModeNone, true))
}
