package match

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cory-johannsen/arena/internal/game/grid"
)

// ErrGameNotFound is returned when a game id does not resolve.
var ErrGameNotFound = errors.New("match: game not found")

// Stats are the base characteristics of a champion.
type Stats struct {
	MaxHealth       int `json:"maxHealth"`
	AttackPower     int `json:"attackPower"`
	DefensePower    int `json:"defensePower"`
	MaxSpeed        int `json:"maxSpeed"`
	MaxActionPoints int `json:"maxActionPoints"`
}

// DefaultStats are used for players created without explicit stats.
var DefaultStats = Stats{MaxHealth: 10, AttackPower: 6, DefensePower: 4, MaxSpeed: 4, MaxActionPoints: 1}

// PlayerSpec describes one participant of a new game.
type PlayerSpec struct {
	Name       string `json:"name"`
	Team       Team   `json:"team"`
	Bot        bool   `json:"bot"`
	Aggressive bool   `json:"aggressive"`
	Stats      *Stats `json:"stats,omitempty"`
}

// ItemSpec places an item on the floor at game creation.
type ItemSpec struct {
	Name     string        `json:"name"`
	Position grid.Position `json:"position"`
}

// GameSpec describes a game to create.
type GameSpec struct {
	Mode    Mode         `json:"mode"`
	Layout  []string     `json:"layout"`
	Players []PlayerSpec `json:"players"`
	Items   []ItemSpec   `json:"items"`
}

// DefaultLayout is used when a GameSpec has no layout.
var DefaultLayout = []string{
	"S........S",
	"..#....#..",
	"...~~~~...",
	"..#.~~.#..",
	"..#.~~.#..",
	"...~~~~...",
	"..#....#..",
	"S........S",
}

// Registry is the game manager: it creates games and resolves them by id.
//
// Registry is safe for concurrent use; the games it returns are not.
type Registry struct {
	mu    sync.RWMutex
	games map[string]*Game
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{games: make(map[string]*Game)}
}

// Create builds a game from spec and registers it.
//
// Postcondition: every player stands on a distinct spawn tile with full
// health, speed and action points; humans and bots start connected.
func (r *Registry) Create(spec GameSpec) (*Game, error) {
	g, err := build(spec)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.games[g.ID] = g
	r.mu.Unlock()
	return g, nil
}

// Get returns the game with id.
func (r *Registry) Get(id string) (*Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[id]
	return g, ok
}

// Remove forgets the game with id. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.games, id)
	r.mu.Unlock()
}

// Len returns the number of registered games.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

func build(spec GameSpec) (*Game, error) {
	mode := spec.Mode
	if mode == "" {
		mode = ModeClassic
	}
	if mode != ModeClassic && mode != ModeCaptureTheFlag {
		return nil, fmt.Errorf("match: unknown mode %q", spec.Mode)
	}
	layout := spec.Layout
	if len(layout) == 0 {
		layout = DefaultLayout
	}
	g, spawns, err := grid.Parse(layout)
	if err != nil {
		return nil, fmt.Errorf("match: parsing layout: %w", err)
	}
	if len(spec.Players) == 0 {
		return nil, fmt.Errorf("match: a game needs at least one player")
	}
	if len(spec.Players) > len(spawns) {
		return nil, fmt.Errorf("match: %d players but only %d spawn tiles", len(spec.Players), len(spawns))
	}

	game := &Game{
		ID:    uuid.NewString(),
		Mode:  mode,
		Grid:  g,
		Items: make(map[grid.Position]*Item),
	}
	for i, ps := range spec.Players {
		if ps.Name == "" {
			return nil, fmt.Errorf("match: player %d has no name", i)
		}
		team := ps.Team
		switch mode {
		case ModeClassic:
			team = TeamNone
		case ModeCaptureTheFlag:
			if team != RedSide && team != BlueSide {
				return nil, fmt.Errorf("match: player %q needs a team in %s", ps.Name, mode)
			}
		}
		stats := DefaultStats
		if ps.Stats != nil {
			stats = *ps.Stats
		}
		if stats.MaxHealth <= 0 {
			return nil, fmt.Errorf("match: player %q needs positive max health", ps.Name)
		}
		p := &Player{
			ID:              uuid.NewString(),
			Name:            ps.Name,
			Team:            team,
			Position:        spawns[i],
			SpawnPosition:   spawns[i],
			Health:          stats.MaxHealth,
			MaxHealth:       stats.MaxHealth,
			AttackPower:     stats.AttackPower,
			DefensePower:    stats.DefensePower,
			Speed:           stats.MaxSpeed,
			MaxSpeed:        stats.MaxSpeed,
			ActionPoints:    stats.MaxActionPoints,
			MaxActionPoints: stats.MaxActionPoints,
			IsConnected:     true,
			IsBot:           ps.Bot,
			IsAggressive:    ps.Aggressive,
		}
		game.Players = append(game.Players, p)
		if game.LeaderID == "" && !p.IsBot {
			game.LeaderID = p.ID
		}
	}
	if game.LeaderID == "" {
		game.LeaderID = game.Players[0].ID
	}

	for _, is := range spec.Items {
		if is.Name == "" {
			return nil, fmt.Errorf("match: item at %s has no name", is.Position)
		}
		if !g.Walkable(is.Position) || game.Occupied(is.Position) {
			return nil, fmt.Errorf("match: item %q cannot be placed at %s", is.Name, is.Position)
		}
		game.PlaceItem(&Item{ID: uuid.NewString(), Name: is.Name}, is.Position)
	}
	return game, nil
}
