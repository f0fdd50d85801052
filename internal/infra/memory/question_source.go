package memory

import (
	"context"

	"quiz-poll-bot/internal/domain"
)

// StaticQuestionSource is a bank.Source backed by a slice (useful for tests/demos).
type StaticQuestionSource struct {
	questions []domain.Question
}

func NewStaticQuestionSource(questions []domain.Question) *StaticQuestionSource {
	return &StaticQuestionSource{questions: questions}
}

func (s *StaticQuestionSource) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	out := make([]domain.Question, len(s.questions))
	for i, q := range s.questions {
		out[i] = q.Clone()
	}
	return out, nil
}
