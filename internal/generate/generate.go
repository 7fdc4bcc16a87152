// Package generate defines the contract for the external content-generation
// collaborators (text, image, storyboard, and video synthesis). The core
// treats generation as an opaque asynchronous operation that returns an
// artifact or fails; it is not assumed idempotent or cancellable.
package generate

import (
	"context"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/interpret"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/session"
)

// Input is the context handed to a stage's generator.
type Input struct {
	SessionID          string
	Stage              session.Stage
	Prompt             string
	TargetDurationSecs int

	// PriorOutput is the approved output of the preceding stage, nil for
	// the first stage.
	PriorOutput *session.StageOutput

	// SelectedIndices narrows PriorOutput to the candidates the user
	// approved, when the prior stage produced multiple.
	SelectedIndices []int

	// Modification is set on regeneration only.
	Modification *interpret.Modification

	// History is a bounded recent suffix of the conversation, oldest-first.
	History []session.ConversationTurn
}

// Generator produces a stage artifact. Callers own retry policy; a caller
// that gives up on an in-flight call supersedes it logically rather than
// cancelling it.
type Generator interface {
	Generate(ctx context.Context, in Input) (*session.StageOutput, error)
}
