package session

import (
	"github.com/lox/pokermatic/internal/game"
)

// startWatchdogLocked creates the deadline ticker. The ticker exists before
// Start returns so a mock clock can be advanced straight away.
func (s *Session) startWatchdogLocked() {
	stop := make(chan struct{})
	s.stopWatch = stop
	ticker := s.clock.NewTicker(s.pollInterval, "session", "watchdog")

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.checkDeadline()
			}
		}
	}()
}

// checkDeadline folds the acting player once their deadline has passed. The
// move number is captured and compared under the same lock, so a player who
// acted in the meantime is never folded for a stale deadline.
func (s *Session) checkDeadline() {
	s.mu.Lock()
	if !s.started || s.halted || s.deadline.IsZero() || s.clock.Now().Before(s.deadline) {
		s.mu.Unlock()
		return
	}
	move := s.moveNumber
	p := s.table.ActingPlayer()
	if p == nil {
		s.mu.Unlock()
		return
	}

	s.logger.Info("Move deadline passed, folding", "player", p.Name, "move", move)
	finished, err := s.forceFoldLocked(p, move)
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("Forced fold failed", "player", p.Name, "error", err)
	}
	if finished {
		s.handFinished()
	}
}

func (s *Session) forceFoldLocked(p *game.Player, move int64) (bool, error) {
	if s.moveNumber != move {
		return false, nil
	}
	s.metrics.ForcedFold()
	return s.actLocked(p, game.Move{Action: game.ActionFold})
}
