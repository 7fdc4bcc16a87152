// Package interpret converts free-text user feedback into structured
// modification intents by calling an external reasoning service.
package interpret

import (
	"context"
	"fmt"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/session"
)

// Modification is the structured intent extracted from user feedback. It is
// transient: consumed by the triggered regeneration and never persisted.
type Modification struct {
	TargetStage session.Stage `json:"target_stage"`
	// Indices of the affected items within the stage output. Empty means
	// the entire stage is regenerated.
	Indices     []int  `json:"indices,omitempty"`
	Instruction string `json:"instruction"`
}

// Reasoner is the external reasoning collaborator. The conversation suffix
// is ordered oldest-first.
type Reasoner interface {
	Interpret(ctx context.Context, suffix []session.ConversationTurn, feedback string) (*Modification, error)
}

// Interpreter reads a bounded suffix of the conversation and asks the
// reasoner for a modification intent.
type Interpreter struct {
	reasoner  Reasoner
	maxTurns  int
	maxTokens int
}

// Option is a functional option for configuring an Interpreter.
type Option func(*Interpreter)

// WithMaxTurns bounds how many trailing conversation turns are read.
func WithMaxTurns(n int) Option {
	return func(i *Interpreter) {
		i.maxTurns = n
	}
}

// WithMaxTokens bounds the estimated token size of the suffix.
func WithMaxTokens(n int) Option {
	return func(i *Interpreter) {
		i.maxTokens = n
	}
}

// New creates an Interpreter backed by the given reasoner.
func New(reasoner Reasoner, opts ...Option) *Interpreter {
	i := &Interpreter{
		reasoner:  reasoner,
		maxTurns:  10,
		maxTokens: 4096,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Extract derives a Modification for the session's current stage from the
// feedback text. It never fails the regeneration: if the reasoner errors or
// returns an unusable intent, the result degrades to "regenerate the whole
// current stage" and the returned error (wrapping ErrFeedbackFailed) is
// reported as recoverable.
//
// Indices outside the current output's item range are dropped; a target
// stage other than the current one is overridden, since regeneration only
// ever applies to the current stage.
func (i *Interpreter) Extract(ctx context.Context, sess *session.Session, feedback string) (*Modification, error) {
	fallback := &Modification{
		TargetStage: sess.CurrentStage,
		Instruction: feedback,
	}

	suffix := session.RecentTurns(sess.ConversationHistory, i.maxTurns, i.maxTokens)

	mod, err := i.reasoner.Interpret(ctx, suffix, feedback)
	if err != nil {
		return fallback, fmt.Errorf("%w: %v", session.ErrFeedbackFailed, err)
	}
	if mod == nil || mod.Instruction == "" {
		return fallback, fmt.Errorf("%w: reasoner returned empty intent", session.ErrFeedbackFailed)
	}

	mod.TargetStage = sess.CurrentStage

	if out, ok := sess.Output(sess.CurrentStage); ok {
		mod.Indices = clampIndices(mod.Indices, out.Payload.ItemCount())
	} else {
		mod.Indices = nil
	}

	return mod, nil
}

func clampIndices(indices []int, count int) []int {
	if len(indices) == 0 {
		return nil
	}
	var out []int
	for _, idx := range indices {
		if idx >= 0 && idx < count {
			out = append(out, idx)
		}
	}
	return out
}
