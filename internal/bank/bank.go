package bank

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quiz-poll-bot/internal/domain"
)

// Source fetches raw questions from a backing store (file, Postgres, ...).
type Source interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// Bank is the immutable set of questions quizzes are sampled from.
type Bank struct {
	questions []domain.Question

	mu  sync.Mutex
	rnd *rand.Rand
}

// Load reads every question from src and validates it.
func Load(ctx context.Context, src Source) (*Bank, error) {
	questions, err := src.LoadQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return New(questions)
}

// New validates questions and builds a bank from private copies of them.
func New(questions []domain.Question) (*Bank, error) {
	return NewWithRand(questions, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand is New with a caller-supplied random source, for deterministic tests.
func NewWithRand(questions []domain.Question, rnd *rand.Rand) (*Bank, error) {
	if len(questions) == 0 {
		return nil, &domain.MalformedDataError{Index: -1, Reason: "no questions found"}
	}
	owned := make([]domain.Question, len(questions))
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, &domain.MalformedDataError{Index: i, Reason: err.Error()}
		}
		owned[i] = q.Clone()
	}
	return &Bank{questions: owned, rnd: rnd}, nil
}

// Len is the number of questions in the bank.
func (b *Bank) Len() int {
	return len(b.questions)
}

// Sample returns n distinct questions chosen uniformly at random.
// The result is a copy; callers may modify it freely.
func (b *Bank) Sample(n int) ([]domain.Question, error) {
	if n <= 0 || n > len(b.questions) {
		return nil, &domain.InvalidRequestError{Requested: n, Max: len(b.questions)}
	}

	idx := make([]int, len(b.questions))
	for i := range idx {
		idx[i] = i
	}

	// partial Fisher-Yates: the first n slots end up a uniform n-subset
	b.mu.Lock()
	for i := 0; i < n; i++ {
		j := i + b.rnd.Intn(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	b.mu.Unlock()

	sample := make([]domain.Question, n)
	for i := 0; i < n; i++ {
		sample[i] = b.questions[idx[i]].Clone()
	}
	return sample, nil
}
