package types

import (
	"fmt"
	"strings"
)

// GameMode 玩家游戏模式。零值 GameModeNone 仅用于"分组不强制模式"。
type GameMode int

const (
	GameModeNone GameMode = iota
	GameModeSurvival
	GameModeCreative
	GameModeAdventure
	GameModeSpectator
)

var gameModeNames = map[GameMode]string{
	GameModeNone:      "none",
	GameModeSurvival:  "survival",
	GameModeCreative:  "creative",
	GameModeAdventure: "adventure",
	GameModeSpectator: "spectator",
}

func (m GameMode) String() string {
	if name, ok := gameModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("gamemode(%d)", int(m))
}

// ParseGameMode accepts the mode name in any case. An empty string yields GameModeNone.
func ParseGameMode(s string) (GameMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return GameModeNone, nil
	}
	for mode, name := range gameModeNames {
		if name == s {
			return mode, nil
		}
	}
	return GameModeNone, fmt.Errorf("unknown game mode: %q", s)
}

func (m GameMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *GameMode) UnmarshalText(text []byte) error {
	mode, err := ParseGameMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
