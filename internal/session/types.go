package session

import "time"

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ConversationTurn is a single immutable entry in a session's conversation
// history. Turns are append-only and their slice order is significant: the
// feedback interpreter slices the most recent suffix, so history must always
// be held as an ordered list, never a key-indexed structure.
type ConversationTurn struct {
	Role      string            `json:"role"`
	Text      string            `json:"text"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// PayloadKind tags the variant carried by a StagePayload.
type PayloadKind string

const (
	PayloadNarrative  PayloadKind = "narrative"
	PayloadImageSet   PayloadKind = "image_set"
	PayloadStoryboard PayloadKind = "storyboard"
	PayloadVideo      PayloadKind = "video"
)

// ImageRef points at one generated reference image candidate.
type ImageRef struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt,omitempty"`
}

// ClipDescriptor describes one planned storyboard clip.
type ClipDescriptor struct {
	Index        int    `json:"index"`
	Description  string `json:"description"`
	DurationSecs int    `json:"duration_secs"`
	ImageURL     string `json:"image_url,omitempty"`
}

// VideoClip describes one rendered video segment.
type VideoClip struct {
	Index        int    `json:"index"`
	URL          string `json:"url"`
	DurationSecs int    `json:"duration_secs"`
}

// StagePayload is the tagged variant holding a stage's artifact. Exactly one
// of the variant fields is set, selected by Kind.
type StagePayload struct {
	Kind       PayloadKind      `json:"kind"`
	Narrative  string           `json:"narrative,omitempty"`
	Images     []ImageRef       `json:"images,omitempty"`
	Storyboard []ClipDescriptor `json:"storyboard,omitempty"`
	Clips      []VideoClip      `json:"clips,omitempty"`
}

// ItemCount returns the number of selectable items in the payload. Narrative
// payloads count as a single item.
func (p StagePayload) ItemCount() int {
	switch p.Kind {
	case PayloadImageSet:
		return len(p.Images)
	case PayloadStoryboard:
		return len(p.Storyboard)
	case PayloadVideo:
		return len(p.Clips)
	default:
		return 1
	}
}

// StageOutput is the artifact descriptor produced by one external generation
// call. Immutable once written; a regeneration replaces the session's mapped
// value for the stage rather than versioning it.
type StageOutput struct {
	Stage      Stage        `json:"stage"`
	Payload    StagePayload `json:"payload"`
	DurationMs int64        `json:"duration_ms"`
	CostUSD    float64      `json:"cost_usd"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Session is all serializable state for one workflow run.
//
// PERSISTED:
// - ID, OwnerID: identity
// - CreatedAt, UpdatedAt: timestamps (maintained by the store)
// - Version: monotonically increasing, for optimistic locking in
//   distributed deployments
// - CurrentStage: only ever advanced by an explicit approval
// - StageOutputs: latest output per entered stage
// - ConversationHistory: ordered user/assistant/system turns
// - GenerationSeq: sequence number of the most recent generation request,
//   used to discard superseded completions
type Session struct {
	ID                  string                `json:"id"`
	OwnerID             string                `json:"owner_id"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
	Version             int64                 `json:"version"`
	CurrentStage        Stage                 `json:"current_stage"`
	Prompt              string                `json:"prompt"`
	TargetDurationSecs  int                   `json:"target_duration_secs"`
	StageOutputs        map[Stage]StageOutput `json:"stage_outputs"`
	ConversationHistory []ConversationTurn    `json:"conversation_history"`
	GenerationSeq       uint64                `json:"generation_seq"`
}

// Output returns the stored output for stage, if any.
func (s *Session) Output(stage Stage) (StageOutput, bool) {
	out, ok := s.StageOutputs[stage]
	return out, ok
}
