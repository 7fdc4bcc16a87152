package session

import (
	"fmt"
	"testing"
)

func turns(n int) []ConversationTurn {
	var out []ConversationTurn
	for i := 0; i < n; i++ {
		out = append(out, NewTurn(RoleUser, fmt.Sprintf("turn %d", i), nil))
	}
	return out
}

func TestRecentTurnsAppliesTurnLimit(t *testing.T) {
	history := turns(25)

	got := RecentTurns(history, 10, 0)
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	// Must be the most recent suffix, oldest first.
	if got[0].Text != "turn 15" || got[9].Text != "turn 24" {
		t.Errorf("suffix = [%s .. %s], want [turn 15 .. turn 24]", got[0].Text, got[9].Text)
	}
}

func TestRecentTurnsAppliesTokenLimit(t *testing.T) {
	history := turns(10)

	// "turn N" is 6-7 ASCII chars, ~2 tokens each.
	got := RecentTurns(history, 10, 6)
	if len(got) >= 10 {
		t.Fatalf("token limit did not shrink suffix: len = %d", len(got))
	}
	// Newest turn must survive.
	if got[len(got)-1].Text != "turn 9" {
		t.Errorf("last turn = %q, want %q", got[len(got)-1].Text, "turn 9")
	}
}

func TestRecentTurnsPreservesOrder(t *testing.T) {
	history := turns(8)
	got := RecentTurns(history, 5, 0)
	for i := 1; i < len(got); i++ {
		if got[i-1].Timestamp.After(got[i].Timestamp) {
			t.Fatal("suffix out of order")
		}
	}
}

func TestRecentTurnsEmpty(t *testing.T) {
	if got := RecentTurns(nil, 5, 100); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens("abcd"); got != 1 {
		t.Errorf("EstimateTokens(abcd) = %d, want 1", got)
	}
	if got := EstimateTokens("日本語"); got != 3 {
		t.Errorf("EstimateTokens(日本語) = %d, want 3", got)
	}
}
