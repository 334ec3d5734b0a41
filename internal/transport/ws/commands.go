package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cory-johannsen/arena/internal/game/grid"
	"github.com/cory-johannsen/arena/internal/game/match"
)

// ErrInvalidCommand is returned for frames that are not a known command.
var ErrInvalidCommand = errors.New("ws: invalid command")

// Command types accepted from clients.
const (
	CmdStartGame   = "startGame"
	CmdEndTurn     = "endTurn"
	CmdMove        = "move"
	CmdPickUp      = "pickUp"
	CmdStartCombat = "startCombat"
	CmdAttack      = "attack"
	CmdAutoAttack  = "autoAttack"
	CmdEscape      = "escape"
	CmdToggleDebug = "toggleDebug"
)

// Game is the façade the gateway drives.
type Game interface {
	CreateGame(spec match.GameSpec) (match.Snapshot, error)
	Snapshot(gameID string) (match.Snapshot, bool)
	StartGame(gameID string) bool
	EndTurn(gameID, playerID string) bool
	MovePlayer(gameID, playerID string, dest grid.Position) bool
	PickUpItem(gameID, playerID string) bool
	StartCombat(gameID, attackerID, targetID string) bool
	PlayerAttack(gameID, attackerID, targetID string, isAutoAttack bool) bool
	AttemptEscape(gameID, playerID string) bool
	ToggleDebugMode(gameID, playerID string) bool
	PlayerConnected(gameID, playerID string) bool
	PlayerDisconnected(gameID, playerID string)
}

// Command is one client frame.
type Command struct {
	Type     string         `json:"type"`
	TargetID string         `json:"targetId,omitempty"`
	Position *grid.Position `json:"position,omitempty"`
}

// DecodeCommand parses and validates a client frame.
func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	switch cmd.Type {
	case CmdStartGame, CmdEndTurn, CmdPickUp, CmdEscape, CmdToggleDebug:
	case CmdMove:
		if cmd.Position == nil {
			return Command{}, fmt.Errorf("%w: move needs a position", ErrInvalidCommand)
		}
	case CmdStartCombat, CmdAttack, CmdAutoAttack:
		if cmd.TargetID == "" {
			return Command{}, fmt.Errorf("%w: %s needs a targetId", ErrInvalidCommand, cmd.Type)
		}
	default:
		return Command{}, fmt.Errorf("%w: unknown type %q", ErrInvalidCommand, cmd.Type)
	}
	return cmd, nil
}

// Dispatch runs cmd for playerID in gameID and reports whether the game
// accepted it.
//
// Precondition: cmd came from DecodeCommand.
func Dispatch(g Game, gameID, playerID string, cmd Command) bool {
	switch cmd.Type {
	case CmdStartGame:
		return g.StartGame(gameID)
	case CmdEndTurn:
		return g.EndTurn(gameID, playerID)
	case CmdMove:
		return g.MovePlayer(gameID, playerID, *cmd.Position)
	case CmdPickUp:
		return g.PickUpItem(gameID, playerID)
	case CmdStartCombat:
		return g.StartCombat(gameID, playerID, cmd.TargetID)
	case CmdAttack:
		return g.PlayerAttack(gameID, playerID, cmd.TargetID, false)
	case CmdAutoAttack:
		return g.PlayerAttack(gameID, playerID, cmd.TargetID, true)
	case CmdEscape:
		return g.AttemptEscape(gameID, playerID)
	case CmdToggleDebug:
		return g.ToggleDebugMode(gameID, playerID)
	default:
		return false
	}
}
