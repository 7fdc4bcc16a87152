package machine

import (
	"fmt"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/session"
)

// Approval gate: progression through the stage order is only legal via an
// explicit approval, never as a side effect of a stage completing.

// checkApproval verifies that approving stage on sess is legal and returns
// the stage that progression advances to.
func checkApproval(sess *session.Session, stage session.Stage) (session.Stage, error) {
	if stage != sess.CurrentStage {
		return "", fmt.Errorf("%w: approve %q but session is at %q",
			session.ErrStageMismatch, stage, sess.CurrentStage)
	}
	if session.Terminal(stage) {
		return "", fmt.Errorf("%w: session is already %q", session.ErrStageMismatch, stage)
	}
	if _, ok := sess.Output(stage); !ok {
		return "", fmt.Errorf("%w: stage %q has not produced output", session.ErrNoOutput, stage)
	}
	next, ok := session.Next(stage)
	if !ok {
		return "", fmt.Errorf("%w: stage %q has no successor", session.ErrStageMismatch, stage)
	}
	return next, nil
}

// checkMutable verifies that stage-scoped mutations (regeneration, stage
// completion) address the session's current, non-terminal stage.
func checkMutable(sess *session.Session, stage session.Stage) error {
	if session.Terminal(sess.CurrentStage) {
		return fmt.Errorf("%w: session is %q", session.ErrStageMismatch, sess.CurrentStage)
	}
	if stage != sess.CurrentStage {
		return fmt.Errorf("%w: stage %q but session is at %q",
			session.ErrStageMismatch, stage, sess.CurrentStage)
	}
	return nil
}
