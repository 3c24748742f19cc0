package session

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/poinbot/poinbot/internal/domain"
)

// exitKeyword ends a game without reward.
const exitKeyword = "stop"

// startGame enters the guessing game with a fresh random target.
func (e *Engine) startGame(userID string) (string, error) {
	target := 1 + rand.IntN(100)
	err := e.repo.UpdateUser(userID, func(u *domain.UserRecord) error {
		u.Mode = domain.ModeInGame
		u.GameTarget = target
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("I picked a number between 1 and 100. Guess it for %d points, or type %q to give up.",
		e.cfg.GameReward, exitKeyword), nil
}

// gameTurn handles one message while in-game. Wrong guesses and
// non-integers never mutate balance or mode.
func (e *Engine) gameTurn(u domain.UserRecord, text string) ([]string, error) {
	if strings.EqualFold(strings.TrimSpace(text), exitKeyword) {
		target := u.GameTarget
		err := e.repo.UpdateUser(u.ID, func(u *domain.UserRecord) error {
			u.Mode = domain.ModeIdle
			u.GameTarget = 0
			return nil
		})
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("Game over. The number was %d.", target)}, nil
	}

	guess, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return []string{fmt.Sprintf("Send a whole number between 1 and 100, or %q to give up.", exitKeyword)}, nil
	}

	switch {
	case guess < u.GameTarget:
		return []string{"Too low."}, nil
	case guess > u.GameTarget:
		return []string{"Too high."}, nil
	}

	var balance int64
	err = e.repo.UpdateUser(u.ID, func(u *domain.UserRecord) error {
		u.Balance += e.cfg.GameReward
		u.Mode = domain.ModeIdle
		u.GameTarget = 0
		balance = u.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.metrics.GamesWon.Inc()
	e.recordCredit(u.ID, e.cfg.GameReward, balance, domain.TxGame, 0)
	return []string{fmt.Sprintf("Correct! +%d points. Balance: %d.", e.cfg.GameReward, balance)}, nil
}
