package domain

import "fmt"

// Question models a single-choice question with exactly one correct option.
type Question struct {
	Text         string   `json:"question" yaml:"question"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correct_answer" yaml:"correct_answer"`
}

// Validate reports why a question cannot be used, or nil.
func (q Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("question text is empty")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("need at least 2 options, got %d", len(q.Options))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("correct_answer %d out of range [0, %d)", q.CorrectIndex, len(q.Options))
	}
	return nil
}

// Clone returns a copy that shares no memory with q.
func (q Question) Clone() Question {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return Question{Text: q.Text, Options: options, CorrectIndex: q.CorrectIndex}
}

// PendingPoll is the registry entry for a poll that has been sent and not yet resolved.
// SessionID ties the poll to the session that sent it without keeping that session alive.
type PendingPoll struct {
	PollID       string `json:"poll_id"`
	ChatID       int64  `json:"chat_id"`
	SessionID    string `json:"session_id"`
	CorrectIndex int    `json:"correct_index"`
	Resolved     bool   `json:"resolved"`
}
