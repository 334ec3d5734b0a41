package match

import "time"

// Standing is one player's line in a finished game.
type Standing struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	Team      Team   `json:"team"`
	IsBot     bool   `json:"isBot"`
	FightsWon int    `json:"fightsWon"`
	Winner    bool   `json:"winner"`
}

// Result is the outcome of a finished game.
type Result struct {
	GameID      string     `json:"gameId"`
	Mode        Mode       `json:"mode"`
	WinningTeam Team       `json:"winningTeam"`
	Standings   []Standing `json:"standings"`
	FinishedAt  time.Time  `json:"finishedAt"`
}

// Winners returns the standings flagged as winners.
func (r Result) Winners() []Standing {
	var out []Standing
	for _, st := range r.Standings {
		if st.Winner {
			out = append(out, st)
		}
	}
	return out
}

// Result captures the current standings of g, stamped with at.
func (g *Game) Result(team Team, at time.Time) Result {
	r := Result{GameID: g.ID, Mode: g.Mode, WinningTeam: team, FinishedAt: at}
	for _, p := range g.Players {
		r.Standings = append(r.Standings, Standing{
			PlayerID:  p.ID,
			Name:      p.Name,
			Team:      p.Team,
			IsBot:     p.IsBot,
			FightsWon: p.NbFightsWon,
			Winner:    p.IsWinner,
		})
	}
	return r
}
