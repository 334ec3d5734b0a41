package dice

import "go.uber.org/zap"

// Roll evaluates expr against src.
//
// Precondition: src must be non-nil; expr must come from Parse or Die.
// Postcondition: len(result.Dice) == expr.Count and every die is in [1, Sides].
func Roll(expr Expression, src Source) RollResult {
	rolled := make([]int, expr.Count)
	for i := range rolled {
		if expr.Sides <= 1 {
			rolled[i] = 1
			continue
		}
		rolled[i] = src.Intn(expr.Sides) + 1
	}
	return RollResult{Expression: expr.Raw, Dice: rolled, Modifier: expr.Modifier}
}

// Roller wraps a Source and logs every roll at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Source exposes the underlying randomness for callers that need raw draws.
func (r *Roller) Source() Source { return r.src }

// Roll evaluates expr and logs the result.
func (r *Roller) Roll(expr Expression) RollResult {
	result := Roll(expr, r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}

// Percent rolls a d100 and reports whether it landed at or under pct.
// pct <= 0 never succeeds; pct >= 100 always succeeds.
func (r *Roller) Percent(pct int) bool {
	if pct <= 0 {
		return false
	}
	return r.Roll(Die(100)).Total() <= pct
}
