package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/sealdice/perworld/perworld"
	"github.com/sealdice/perworld/perworld/types"
)

// localPlayer 调试用的玩家，状态只在内存里
type localPlayer struct {
	id    uuid.UUID
	name  string
	world string
	state types.PlayerState
}

func (p *localPlayer) UniqueID() uuid.UUID                { return p.id }
func (p *localPlayer) Name() string                       { return p.name }
func (p *localPlayer) World() string                      { return p.world }
func (p *localPlayer) GameMode() types.GameMode           { return p.state.GameMode }
func (p *localPlayer) SetGameMode(mode types.GameMode)    { p.state.GameMode = mode }
func (p *localPlayer) State() types.PlayerState           { return p.state.Clone() }
func (p *localPlayer) ApplyState(state types.PlayerState) { p.state = state.Clone() }

// shell simulates a host: it owns the online players and turns commands into
// lifecycle calls.
type shell struct {
	pw      *perworld.PerWorld
	economy *perworld.MemoryEconomy
	out     io.Writer
	players map[string]*localPlayer
	ids     map[string]uuid.UUID // 下线后再上线沿用同一个ID
}

func newShell(pw *perworld.PerWorld, economy *perworld.MemoryEconomy, out io.Writer) *shell {
	return &shell{
		pw:      pw,
		economy: economy,
		out:     out,
		players: map[string]*localPlayer{},
		ids:     map[string]uuid.UUID{},
	}
}

const shellHelp = `commands:
  join <name> <world>          player comes online
  move <name> <world>          change world
  quit <name> | kick <name>    player leaves
  give <name> <item> [amount]  put an item into the inventory
  mode <name> <mode>           change game mode
  pay <name> <amount>          deposit money
  show <name>                  print a player's state
  tick                         run one write-back cycle
  dump                         list cached snapshots
  exit`

var errExit = errors.New("exit")

func (s *shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}

func (s *shell) player(name string) (*localPlayer, error) {
	p, ok := s.players[name]
	if !ok {
		return nil, fmt.Errorf("%s is not online", name)
	}
	return p, nil
}

// Exec runs one command line. errExit ends the session.
func (s *shell) Exec(line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(args[0]), args[1:]

	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s: expected %d arguments, see help", cmd, n)
		}
		return nil
	}

	switch cmd {
	case "help", "?":
		s.printf("%s", shellHelp)

	case "exit":
		return errExit

	case "join":
		if err := need(2); err != nil {
			return err
		}
		if _, online := s.players[args[0]]; online {
			return fmt.Errorf("%s is already online", args[0])
		}
		id, ok := s.ids[args[0]]
		if !ok {
			id = uuid.New()
			s.ids[args[0]] = id
		}
		s.players[args[0]] = &localPlayer{
			id:    id,
			name:  args[0],
			world: args[1],
			state: types.DefaultPlayerState(types.GameModeSurvival),
		}
		s.printf("%s joined %s", args[0], args[1])

	case "move":
		if err := need(2); err != nil {
			return err
		}
		p, err := s.player(args[0])
		if err != nil {
			return err
		}
		from := p.world
		p.world = args[1]
		s.pw.Dispatch(&types.PlayerEvent{Type: types.EventWorldChange, Player: p, FromWorld: from})
		s.printf("%s: %s -> %s (%s)", p.name, from, p.world, p.GameMode())

	case "quit", "kick":
		if err := need(1); err != nil {
			return err
		}
		p, err := s.player(args[0])
		if err != nil {
			return err
		}
		evt := types.EventQuit
		if cmd == "kick" {
			evt = types.EventKick
		}
		s.pw.Dispatch(&types.PlayerEvent{Type: evt, Player: p})
		delete(s.players, p.name)
		s.printf("%s left", p.name)

	case "give":
		if err := need(2); err != nil {
			return err
		}
		p, err := s.player(args[0])
		if err != nil {
			return err
		}
		amount := 1
		if len(args) > 2 {
			if amount, err = strconv.Atoi(args[2]); err != nil || amount <= 0 {
				return fmt.Errorf("give: bad amount %q", args[2])
			}
		}
		_, slot, ok := lo.FindIndexOf(p.state.Inventory, func(it types.ItemStack) bool { return it.IsEmpty() })
		if !ok {
			return fmt.Errorf("give: inventory of %s is full", p.name)
		}
		p.state.Inventory[slot] = types.ItemStack{Type: args[1], Amount: amount}
		s.printf("gave %d %s to %s (slot %d)", amount, args[1], p.name, slot)

	case "mode":
		if err := need(2); err != nil {
			return err
		}
		p, err := s.player(args[0])
		if err != nil {
			return err
		}
		mode, err := types.ParseGameMode(args[1])
		if err != nil || mode == types.GameModeNone {
			return fmt.Errorf("mode: unknown game mode %q", args[1])
		}
		p.SetGameMode(mode)
		s.printf("%s is now in %s", p.name, mode)

	case "pay":
		if err := need(2); err != nil {
			return err
		}
		p, err := s.player(args[0])
		if err != nil {
			return err
		}
		amount, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("pay: bad amount %q", args[1])
		}
		s.economy.Deposit(p.id, amount)
		b, _ := s.economy.Balances(p)
		s.printf("%s balance %.2f", p.name, b.Balance)

	case "show":
		if err := need(1); err != nil {
			return err
		}
		p, err := s.player(args[0])
		if err != nil {
			return err
		}
		items := lo.FilterMap(p.state.Inventory, func(it types.ItemStack, _ int) (string, bool) {
			return fmt.Sprintf("%s x%d", it.Type, it.Amount), !it.IsEmpty()
		})
		b, _ := s.economy.Balances(p)
		s.printf("%s in %s, %s, health %.1f, balance %.2f", p.name, p.world, p.GameMode(), p.state.Health, b.Balance)
		s.printf("  inventory: [%s]", strings.Join(items, ", "))

	case "tick":
		s.pw.Manager().CheckForSave()
		st := s.pw.Manager().Stats()
		s.printf("cycle %d: submitted %d, evicted %d, failed %d", st.Cycles, st.Submitted, st.Evicted, st.Failed)

	case "dump":
		snaps := s.pw.Snapshots()
		if len(snaps) == 0 {
			s.printf("cache is empty")
			return nil
		}
		names := lo.Invert(lo.MapValues(s.ids, func(id uuid.UUID, _ string) string { return id.String() }))
		sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].Group < snaps[j].Group })
		for _, snap := range snaps {
			s.printf("%-12s %-10s %-8s dirty=%v", snap.Group, names[snap.PlayerID], snap.GameMode, snap.Dirty)
		}

	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

// Close sends every online player through the exit path, then shuts down.
func (s *shell) Close(ctx context.Context) error {
	for _, name := range lo.Keys(s.players) {
		s.pw.OnPlayerExit(s.players[name])
	}
	s.players = map[string]*localPlayer{}
	return s.pw.OnShutdown(ctx)
}
