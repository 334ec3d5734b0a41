package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/arena/internal/game/match"
)

// ErrResultExists is returned when a game's result was already recorded.
var ErrResultExists = errors.New("match result already recorded")

// MatchRepository stores finished match results.
type MatchRepository struct {
	db *pgxpool.Pool
}

// NewMatchRepository creates a MatchRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// RecordResult writes r and its standings in one transaction.
//
// Precondition: r.GameID must be non-empty.
// Postcondition: Returns ErrResultExists if r.GameID was already recorded;
// nothing is written in that case.
func (r *MatchRepository) RecordResult(ctx context.Context, res match.Result) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	team := res.WinningTeam
	if team == "" {
		team = match.TeamNone
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO match_results (game_id, mode, winning_team, finished_at)
		 VALUES ($1, $2, $3, $4)`,
		res.GameID, string(res.Mode), string(team), res.FinishedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrResultExists
		}
		return fmt.Errorf("inserting match result: %w", err)
	}

	batch := &pgx.Batch{}
	for i, st := range res.Standings {
		batch.Queue(
			`INSERT INTO match_standings (game_id, position, player_id, name, team, is_bot, fights_won, winner)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			res.GameID, i, st.PlayerID, st.Name, string(st.Team), st.IsBot, st.FightsWon, st.Winner,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting standings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing match result: %w", err)
	}
	return nil
}

// Recent returns up to limit results, newest first, with their standings in
// turn order.
//
// Precondition: limit must be > 0.
func (r *MatchRepository) Recent(ctx context.Context, limit int) ([]match.Result, error) {
	rows, err := r.db.Query(ctx,
		`SELECT game_id, mode, winning_team, finished_at
		 FROM match_results
		 ORDER BY finished_at DESC, game_id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying match results: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (match.Result, error) {
		var res match.Result
		var mode, team string
		if err := row.Scan(&res.GameID, &mode, &team, &res.FinishedAt); err != nil {
			return match.Result{}, err
		}
		res.Mode, res.WinningTeam = match.Mode(mode), match.Team(team)
		return res, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning match results: %w", err)
	}
	if len(results) == 0 {
		return results, nil
	}

	ids := make([]string, len(results))
	index := make(map[string]int, len(results))
	for i, res := range results {
		ids[i] = res.GameID
		index[res.GameID] = i
	}
	rows, err = r.db.Query(ctx,
		`SELECT game_id, player_id, name, team, is_bot, fights_won, winner
		 FROM match_standings
		 WHERE game_id = ANY($1)
		 ORDER BY game_id, position`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("querying standings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var gameID, team string
		var st match.Standing
		if err := rows.Scan(&gameID, &st.PlayerID, &st.Name, &team, &st.IsBot, &st.FightsWon, &st.Winner); err != nil {
			return nil, fmt.Errorf("scanning standing: %w", err)
		}
		st.Team = match.Team(team)
		i := index[gameID]
		results[i].Standings = append(results[i].Standings, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating standings: %w", err)
	}
	return results, nil
}

// isDuplicateKeyError reports whether err is a PostgreSQL unique violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
