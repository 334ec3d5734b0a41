package session

import "fmt"

// PhaseKind enumerates the mutually exclusive phases of a game.
type PhaseKind int

const (
	PhaseIdle PhaseKind = iota
	PhasePlayerTurn
	PhaseCombat
	PhaseTransitioning
)

func (k PhaseKind) String() string {
	switch k {
	case PhaseIdle:
		return "idle"
	case PhasePlayerTurn:
		return "player_turn"
	case PhaseCombat:
		return "combat"
	case PhaseTransitioning:
		return "transitioning"
	default:
		return fmt.Sprintf("phase(%d)", int(k))
	}
}

// Phase is a tagged variant. Only the fields of the active Kind are set; use
// the constructors rather than building literals.
type Phase struct {
	Kind PhaseKind

	// PhasePlayerTurn and PhaseTransitioning.
	PlayerID string

	// PhaseCombat.
	First  string
	Second string
	Acting string
}

// Idle is the phase before the first turn and after a game ends.
func Idle() Phase { return Phase{Kind: PhaseIdle} }

// PlayerTurn is the phase in which playerID may move and start fights.
func PlayerTurn(playerID string) Phase { return Phase{Kind: PhasePlayerTurn, PlayerID: playerID} }

// Transitioning is the delay before playerID's turn starts.
func Transitioning(to string) Phase { return Phase{Kind: PhaseTransitioning, PlayerID: to} }

// InCombat is a running 1v1 fight in which acting holds the combat turn.
func InCombat(first, second, acting string) Phase {
	return Phase{Kind: PhaseCombat, First: first, Second: second, Acting: acting}
}

func (p Phase) String() string {
	switch p.Kind {
	case PhasePlayerTurn, PhaseTransitioning:
		return p.Kind.String() + "{" + p.PlayerID + "}"
	case PhaseCombat:
		return fmt.Sprintf("combat{%s vs %s, acting %s}", p.First, p.Second, p.Acting)
	default:
		return p.Kind.String()
	}
}
