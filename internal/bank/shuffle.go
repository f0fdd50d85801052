package bank

import (
	"math/rand"

	"quiz-poll-bot/internal/domain"
)

// Shuffle returns a copy of q with its options permuted and CorrectIndex
// pointing at the same option text as before. q is left untouched.
func Shuffle(q domain.Question, rnd *rand.Rand) domain.Question {
	return permute(q, rnd.Perm(len(q.Options)))
}

// permute builds the question whose i-th option is q.Options[perm[i]].
func permute(q domain.Question, perm []int) domain.Question {
	options := make([]string, len(perm))
	correct := -1
	for i, from := range perm {
		options[i] = q.Options[from]
		if from == q.CorrectIndex {
			correct = i
		}
	}
	return domain.Question{Text: q.Text, Options: options, CorrectIndex: correct}
}

// Truncate clips every option to at most maxLen runes. It fails with
// domain.ErrUnusableQuestion when any clipped option is empty.
func Truncate(options []string, maxLen int) ([]string, error) {
	clipped := make([]string, len(options))
	for i, opt := range options {
		clipped[i] = clip(opt, maxLen)
		if clipped[i] == "" {
			return clipped, domain.ErrUnusableQuestion
		}
	}
	return clipped, nil
}

func clip(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i]
		}
		n++
	}
	return s
}
