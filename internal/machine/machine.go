// Package machine owns the session lifecycle: stage progression, external
// generation dispatch, and the per-session serialization of mutating
// operations. All durable state lives behind the store; every mutation is
// written through before any notification is emitted.
package machine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/eventlog"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/generate"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/interpret"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/notify"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/session"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/store"
)

// Input bounds for Start.
const (
	maxPromptLen    = 2000
	minDurationSecs = 5
	maxDurationSecs = 120
)

// Notifier pushes events onto a session's real-time channel.
type Notifier interface {
	Publish(sessionID string, env notify.Envelope)
}

// Machine coordinates sessions through the stage sequence. Mutating
// operations on one session are serialized by a per-session mutex; external
// generation and reasoning calls always run outside that lock.
type Machine struct {
	store      store.Store
	generator  generate.Generator
	interp     *interpret.Interpreter
	notifier   Notifier
	events     *eventlog.Logger
	genTimeout time.Duration
	suffixLen  int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Options configures a Machine.
type Options struct {
	// GenTimeout bounds each external generation call. Zero means the
	// default of 5 minutes.
	GenTimeout time.Duration
	// SuffixLen is the number of trailing conversation turns handed to
	// generators as context. Zero means the default of 10.
	SuffixLen int
}

// New creates a Machine. events may be nil to disable audit logging.
func New(st store.Store, gen generate.Generator, interp *interpret.Interpreter, notifier Notifier, events *eventlog.Logger, opts Options) *Machine {
	if opts.GenTimeout <= 0 {
		opts.GenTimeout = 5 * time.Minute
	}
	if opts.SuffixLen <= 0 {
		opts.SuffixLen = 10
	}
	return &Machine{
		store:      st,
		generator:  gen,
		interp:     interp,
		notifier:   notifier,
		events:     events,
		genTimeout: opts.GenTimeout,
		suffixLen:  opts.SuffixLen,
		locks:      make(map[string]*sync.Mutex),
	}
}

// lock acquires the session's mutex, creating it on first use.
func (m *Machine) lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sessionID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Start creates a session in the story stage, persists it, and dispatches
// the first generation call. The caller owns retry policy for the
// generation itself.
func (m *Machine) Start(ctx context.Context, ownerID, prompt string, targetDurationSecs int) (*session.Session, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" || len(prompt) > maxPromptLen {
		return nil, fmt.Errorf("%w: prompt must be 1-%d characters", session.ErrValidation, maxPromptLen)
	}
	if targetDurationSecs < minDurationSecs || targetDurationSecs > maxDurationSecs {
		return nil, fmt.Errorf("%w: target duration must be %d-%d seconds",
			session.ErrValidation, minDurationSecs, maxDurationSecs)
	}

	sess := &session.Session{
		ID:                 uuid.NewString(),
		OwnerID:            ownerID,
		CurrentStage:       session.StageStory,
		Prompt:             prompt,
		TargetDurationSecs: targetDurationSecs,
		StageOutputs:       make(map[session.Stage]session.StageOutput),
		ConversationHistory: []session.ConversationTurn{
			session.NewTurn(session.RoleUser, prompt, nil),
		},
		GenerationSeq: 1,
	}

	if err := m.store.Create(ctx, sess); err != nil {
		return nil, storageErr(err)
	}

	m.logEvent(eventlog.Event{Event: eventlog.EventSessionStarted, SessionID: sess.ID, Stage: string(sess.CurrentStage)})
	m.dispatch(generate.Input{
		SessionID:          sess.ID,
		Stage:              session.StageStory,
		Prompt:             prompt,
		TargetDurationSecs: targetDurationSecs,
	}, sess.GenerationSeq)

	return sess, nil
}

// Get returns the durable session state.
func (m *Machine) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, storageErr(err)
	}
	return sess, nil
}

// HandleStageComplete applies a finished generation to the session. The
// call is idempotent and staleness-checked: a completion for a stage the
// session has moved past, or for a superseded generation request (seq below
// the session's current sequence), is discarded — logged with its cost so
// discarded spend stays meterable. seq 0 skips the sequence check for
// callers outside the dispatch path.
func (m *Machine) HandleStageComplete(ctx context.Context, sessionID string, stage session.Stage, seq uint64, out *session.StageOutput) error {
	unlock := m.lock(sessionID)
	defer unlock()

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return storageErr(err)
	}

	if session.Terminal(sess.CurrentStage) || stage != sess.CurrentStage || (seq != 0 && seq != sess.GenerationSeq) {
		m.logEvent(eventlog.Event{
			Event:      eventlog.EventGenerationSuperseded,
			SessionID:  sessionID,
			Stage:      string(stage),
			Seq:        seq,
			Reason:     "stale completion discarded",
			DurationMs: out.DurationMs,
			CostUSD:    out.CostUSD,
		})
		return nil
	}

	// Idempotence: re-applying an identical completion is a no-op.
	if existing, ok := sess.Output(stage); ok && reflect.DeepEqual(existing, *out) {
		return nil
	}

	sess.StageOutputs[stage] = *out
	if err := m.store.Update(ctx, sess); err != nil {
		return storageErr(err)
	}

	m.logEvent(eventlog.Event{
		Event:      eventlog.EventStageComplete,
		SessionID:  sessionID,
		Stage:      string(stage),
		Seq:        seq,
		DurationMs: out.DurationMs,
		CostUSD:    out.CostUSD,
	})
	m.publish(sessionID, notify.StageComplete(out))
	return nil
}

// Approve advances the session to the next stage and dispatches its
// generation, seeded with the approved output (narrowed to selectedIndices
// when the stage produced multiple candidates). Approving video completes
// the session.
func (m *Machine) Approve(ctx context.Context, sessionID string, stage session.Stage, selectedIndices []int, notes string) (session.Stage, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return "", storageErr(err)
	}

	next, err := checkApproval(sess, stage)
	if err != nil {
		return "", err
	}

	approved, _ := sess.Output(stage)
	for _, idx := range selectedIndices {
		if idx < 0 || idx >= approved.Payload.ItemCount() {
			return "", fmt.Errorf("%w: selected index %d out of range", session.ErrValidation, idx)
		}
	}

	sess.CurrentStage = next
	sess.GenerationSeq++
	seq := sess.GenerationSeq
	meta := map[string]string{"action": "approve", "stage": string(stage)}
	if len(selectedIndices) > 0 {
		meta["selected"] = joinInts(selectedIndices)
	}
	text := notes
	if text == "" {
		text = "approved " + string(stage)
	}
	sess.ConversationHistory = append(sess.ConversationHistory, session.NewTurn(session.RoleUser, text, meta))

	if err := m.store.Update(ctx, sess); err != nil {
		return "", storageErr(err)
	}

	m.logEvent(eventlog.Event{Event: eventlog.EventStageApproved, SessionID: sessionID, Stage: string(stage)})

	if next == session.StageComplete {
		m.logEvent(eventlog.Event{Event: eventlog.EventSessionComplete, SessionID: sessionID})
		return next, nil
	}

	m.dispatch(generate.Input{
		SessionID:          sessionID,
		Stage:              next,
		Prompt:             sess.Prompt,
		TargetDurationSecs: sess.TargetDurationSecs,
		PriorOutput:        &approved,
		SelectedIndices:    selectedIndices,
		History:            session.RecentTurns(sess.ConversationHistory, m.suffixLen, 0),
	}, seq)

	return next, nil
}

// Regenerate re-runs the current stage's generation steered by free-text
// feedback. The feedback turn and the bumped generation sequence are
// persisted synchronously; interpretation and generation happen
// asynchronously, outside the session lock. The current stage never
// changes.
func (m *Machine) Regenerate(ctx context.Context, sessionID string, stage session.Stage, feedback string, hint *interpret.Modification) error {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return fmt.Errorf("%w: feedback must not be empty", session.ErrValidation)
	}

	unlock := m.lock(sessionID)
	defer unlock()

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return storageErr(err)
	}

	if err := checkMutable(sess, stage); err != nil {
		return err
	}

	sess.ConversationHistory = append(sess.ConversationHistory,
		session.NewTurn(session.RoleUser, feedback, map[string]string{"action": "feedback"}))
	sess.GenerationSeq++ // supersedes any in-flight generation
	seq := sess.GenerationSeq

	if err := m.store.Update(ctx, sess); err != nil {
		return storageErr(err)
	}

	m.logEvent(eventlog.Event{Event: eventlog.EventRegenerationRequested, SessionID: sessionID, Stage: string(stage), Seq: seq})

	var prior *session.StageOutput
	if prev, ok := priorStage(stage); ok {
		if out, exists := sess.Output(prev); exists {
			prior = &out
		}
	}
	snapshot := *sess

	go m.interpretAndGenerate(snapshot, stage, feedback, hint, prior, seq)
	return nil
}

// interpretAndGenerate runs the feedback interpretation and the stage
// generation off the session lock.
func (m *Machine) interpretAndGenerate(sess session.Session, stage session.Stage, feedback string, hint *interpret.Modification, prior *session.StageOutput, seq uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), m.genTimeout)
	defer cancel()

	mod := hint
	if mod == nil {
		extracted, err := m.interp.Extract(ctx, &sess, feedback)
		if err != nil {
			// Degraded to whole-stage regeneration; recoverable by contract.
			code, recoverable := session.ErrorCode(err)
			m.publish(sess.ID, notify.Error(code, err.Error(), recoverable))
		}
		mod = extracted
	} else {
		mod.TargetStage = stage
	}

	turn := session.NewTurn(session.RoleAssistant, mod.Instruction, map[string]string{
		"action":       "modification",
		"target_stage": string(mod.TargetStage),
		"indices":      joinInts(mod.Indices),
	})
	if err := m.store.AppendTurn(ctx, sess.ID, turn); err != nil {
		m.logEvent(eventlog.Event{Event: eventlog.EventGenerationFailed, SessionID: sess.ID, Stage: string(stage), Error: "append modification turn: " + err.Error()})
	}

	m.runGeneration(ctx, generate.Input{
		SessionID:          sess.ID,
		Stage:              stage,
		Prompt:             sess.Prompt,
		TargetDurationSecs: sess.TargetDurationSecs,
		PriorOutput:        prior,
		Modification:       mod,
		History:            session.RecentTurns(sess.ConversationHistory, m.suffixLen, 0),
	}, seq)
}

// dispatch launches an external generation call in its own goroutine with a
// bounded timeout. The session lock is never held across the call.
func (m *Machine) dispatch(in generate.Input, seq uint64) {
	m.logEvent(eventlog.Event{Event: eventlog.EventGenerationStarted, SessionID: in.SessionID, Stage: string(in.Stage), Seq: seq})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.genTimeout)
		defer cancel()
		m.runGeneration(ctx, in, seq)
	}()
}

// runGeneration performs one generation call and routes the result back
// into the serialized mutation point. Failures never mutate session state;
// they surface as recoverable error notifications so the client can retry
// via regenerate.
func (m *Machine) runGeneration(ctx context.Context, in generate.Input, seq uint64) {
	out, err := m.generator.Generate(ctx, in)
	if err == nil && out == nil {
		err = errors.New("generator returned no output")
	}
	if err != nil {
		code := "generation_failed"
		if errors.Is(err, context.DeadlineExceeded) {
			code = "generation_timeout"
		}
		m.logEvent(eventlog.Event{
			Event:     eventlog.EventGenerationFailed,
			SessionID: in.SessionID,
			Stage:     string(in.Stage),
			Seq:       seq,
			Error:     err.Error(),
		})
		m.publish(in.SessionID, notify.Error(code, fmt.Sprintf("%s generation failed: %v", in.Stage, err), true))
		return
	}

	if err := m.HandleStageComplete(context.Background(), in.SessionID, in.Stage, seq, out); err != nil {
		code, recoverable := session.ErrorCode(err)
		m.publish(in.SessionID, notify.Error(code, err.Error(), recoverable))
	}
}

func (m *Machine) publish(sessionID string, env notify.Envelope) {
	if m.notifier != nil {
		m.notifier.Publish(sessionID, env)
	}
}

func (m *Machine) logEvent(e eventlog.Event) {
	if m.events == nil {
		return
	}
	_ = m.events.Append(e)
}

// priorStage returns the stage preceding s in the fixed order.
func priorStage(s session.Stage) (session.Stage, bool) {
	stages := session.Stages()
	for i, st := range stages {
		if st == s && i > 0 {
			return stages[i-1], true
		}
	}
	return "", false
}

// storageErr classifies store failures: domain sentinels pass through,
// infrastructure failures fail closed as ErrStorageUnavailable.
func storageErr(err error) error {
	if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrVersionConflict) {
		return err
	}
	return fmt.Errorf("%w: %v", session.ErrStorageUnavailable, err)
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
