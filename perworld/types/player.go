package types

import "github.com/google/uuid"

// Player 在线玩家的读写桥接，由宿主实现
type Player interface {
	UniqueID() uuid.UUID
	Name() string
	World() string
	GameMode() GameMode
	SetGameMode(mode GameMode)

	// State captures the live attributes.
	State() PlayerState
	// ApplyState overwrites the live attributes.
	ApplyState(state PlayerState)
}

// Economy 可选的经济桥接
type Economy interface {
	Balances(p Player) (Balances, error)
	Restore(p Player, b Balances) error
}
