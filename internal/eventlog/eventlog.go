// Package eventlog provides structured event logging.
// Lifecycle and cost events are appended as JSON lines to an audit file.
package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event type constants.
const (
	EventSessionStarted        = "session_started"
	EventGenerationStarted     = "generation_started"
	EventStageComplete         = "stage_complete"
	EventStageApproved         = "stage_approved"
	EventRegenerationRequested = "regeneration_requested"
	EventGenerationSuperseded  = "generation_superseded"
	EventGenerationFailed      = "generation_failed"
	EventSessionComplete       = "session_complete"
)

// Event represents a single structured event written to the log.
// Superseded generations are logged with their duration and cost even
// though their output is discarded, so spend remains meterable.
type Event struct {
	Time       time.Time         `json:"time"`
	Event      string            `json:"event"`
	SessionID  string            `json:"session,omitempty"`
	Stage      string            `json:"stage,omitempty"`
	Seq        uint64            `json:"seq,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Error      string            `json:"error,omitempty"`
	DurationMs int64             `json:"duration_ms,omitempty"`
	CostUSD    float64           `json:"cost_usd,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
}

// Logger writes append-only JSONL events to a log file.
type Logger struct {
	path string
	mu   sync.Mutex
}

// NewLogger creates a Logger that writes to path, creating the parent
// directory if needed. Does not truncate an existing log file.
func NewLogger(path string) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create event log directory: %w", err)
		}
	}
	return &Logger{path: path}, nil
}

// Append writes a single Event as one JSON line to the log file.
// If event.Time is the zero value, it is set to time.Now().UTC().
// Thread-safe via mutex.
func (l *Logger) Append(event Event) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// ReadAll reads and parses all events from the log file.
// Returns an empty slice (not an error) if the file does not exist.
func (l *Logger) ReadAll() ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Event{}, nil
		}
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("parse event log line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}

	return events, nil
}
