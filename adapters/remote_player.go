package adapters

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sealdice/perworld/perworld/types"
)

// RemotePlayer is a player as reported in one host frame. Changes are applied
// locally and forwarded to the host.
type RemotePlayer struct {
	id      uuid.UUID
	name    string
	world   string
	state   types.PlayerState
	session *hostSession
}

func newRemotePlayer(session *hostSession, wp *wirePlayer) *RemotePlayer {
	state := wp.State.Clone()
	if wp.GameMode != types.GameModeNone {
		state.GameMode = wp.GameMode
	}
	return &RemotePlayer{
		id:      wp.ID,
		name:    wp.Name,
		world:   wp.World,
		state:   state,
		session: session,
	}
}

func (p *RemotePlayer) UniqueID() uuid.UUID      { return p.id }
func (p *RemotePlayer) Name() string             { return p.name }
func (p *RemotePlayer) World() string            { return p.world }
func (p *RemotePlayer) GameMode() types.GameMode { return p.state.GameMode }
func (p *RemotePlayer) State() types.PlayerState { return p.state.Clone() }

func (p *RemotePlayer) SetGameMode(mode types.GameMode) {
	p.state.GameMode = mode
	p.send(setGameModeFrame{Type: frameSetGameMode, PlayerID: p.id, GameMode: mode})
}

func (p *RemotePlayer) ApplyState(state types.PlayerState) {
	p.state = state.Clone()
	p.send(applyStateFrame{Type: frameApplyState, PlayerID: p.id, State: p.state})
}

func (p *RemotePlayer) send(frame any) {
	if p.session == nil {
		return
	}
	if err := p.session.writeJSON(frame); err != nil {
		zap.S().Named("adapter").Warnf("send to host for %s failed: %v", p.name, err)
	}
}
