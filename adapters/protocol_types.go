package adapters

import (
	"github.com/google/uuid"

	"github.com/sealdice/perworld/perworld/types"
)

const (
	frameApplyState  = "apply_state"
	frameSetGameMode = "set_game_mode"
	frameError       = "error"
)

// hostFrame 宿主 -> 本进程
type hostFrame struct {
	Type      types.EventType `json:"type"`
	WorldFrom string          `json:"world_from,omitempty"`
	Player    *wirePlayer     `json:"player"`
}

type wirePlayer struct {
	ID       uuid.UUID         `json:"id"`
	Name     string            `json:"name"`
	World    string            `json:"world"`
	GameMode types.GameMode    `json:"game_mode"`
	State    types.PlayerState `json:"state"`
}

// 本进程 -> 宿主
type applyStateFrame struct {
	Type     string            `json:"type"`
	PlayerID uuid.UUID         `json:"player_id"`
	State    types.PlayerState `json:"state"`
}

type setGameModeFrame struct {
	Type     string         `json:"type"`
	PlayerID uuid.UUID      `json:"player_id"`
	GameMode types.GameMode `json:"game_mode"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
