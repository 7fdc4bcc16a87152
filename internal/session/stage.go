package session

import "fmt"

// Stage identifies one step of the generation workflow.
type Stage string

const (
	StageStory          Stage = "story"
	StageReferenceImage Stage = "reference_image"
	StageStoryboard     Stage = "storyboard"
	StageVideo          Stage = "video"
	StageComplete       Stage = "complete"
	StageError          Stage = "error"
)

// stageOrder is the fixed progression through the workflow.
// complete and error are absorbing and never appear here.
var stageOrder = []Stage{StageStory, StageReferenceImage, StageStoryboard, StageVideo}

// Stages returns the ordered generation stages (terminal states excluded).
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// ParseStage validates a wire-format stage name.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageStory, StageReferenceImage, StageStoryboard, StageVideo, StageComplete, StageError:
		return Stage(s), nil
	}
	return "", fmt.Errorf("%w: unknown stage %q", ErrValidation, s)
}

// Next returns the stage that follows s in the fixed order.
// The stage after video is complete. Terminal stages have no successor.
func Next(s Stage) (Stage, bool) {
	for i, st := range stageOrder {
		if st != s {
			continue
		}
		if i == len(stageOrder)-1 {
			return StageComplete, true
		}
		return stageOrder[i+1], true
	}
	return "", false
}

// Terminal reports whether s is an absorbing state.
func Terminal(s Stage) bool {
	return s == StageComplete || s == StageError
}
