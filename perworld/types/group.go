package types

import "slices"

// Group 一组共享物品栏的世界
type Group struct {
	Name     string   `json:"name"     yaml:"name"`
	Worlds   []string `json:"worlds"   yaml:"worlds"`
	GameMode GameMode `json:"gameMode" yaml:"default-gamemode"` // GameModeNone 表示不强制
}

// NewWorldGroup synthesizes a group-of-one for a world no configured group claims.
func NewWorldGroup(world string, mode GameMode) Group {
	return Group{
		Name:     world,
		Worlds:   []string{world},
		GameMode: mode,
	}
}

func (g Group) ContainsWorld(world string) bool {
	return slices.Contains(g.Worlds, world)
}

func (g Group) Equal(other Group) bool {
	return g.Name == other.Name
}

func (g Group) HasGameMode() bool {
	return g.GameMode != GameModeNone
}
