package types

import (
	"fmt"

	"github.com/google/uuid"
)

// Key 持久化主键
type Key struct {
	Group    string    `json:"group"`
	GameMode GameMode  `json:"gameMode"`
	PlayerID uuid.UUID `json:"playerId"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Group, k.GameMode, k.PlayerID)
}

// StorageMode maps a live game mode to the mode used in keys. Without mode
// separation every group has a single survival slot.
func StorageMode(mode GameMode, separate bool) GameMode {
	if separate && mode != GameModeNone {
		return mode
	}
	return GameModeSurvival
}

// Record is the unit handed to a SnapshotIO.
type Record struct {
	Key     Key         `json:"key"`
	Name    string      `json:"name"`
	State   PlayerState `json:"state"`
	Version string      `json:"version"`
	SavedAt int64       `json:"savedAt"`
}
