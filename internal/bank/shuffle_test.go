package bank

import (
	"errors"
	"math/rand"
	"testing"

	"quiz-poll-bot/internal/domain"
)

func TestPermuteKeepsCorrectOptionForEveryPermutation(t *testing.T) {
	options := []string{"alpha", "beta", "gamma", "delta"}
	for correct := range options {
		q := domain.Question{Text: "pick", Options: options, CorrectIndex: correct}
		want := options[correct]

		count := 0
		forEachPermutation(len(options), func(perm []int) {
			count++
			got := permute(q, perm)
			if got.Options[got.CorrectIndex] != want {
				t.Fatalf("perm %v: correct option %q, want %q", perm, got.Options[got.CorrectIndex], want)
			}
		})
		if count != 24 {
			t.Fatalf("expected 24 permutations, got %d", count)
		}
	}
}

func TestShuffleKeepsCorrectOptionAcrossSeeds(t *testing.T) {
	q := domain.Question{Text: "pick", Options: []string{"1", "2", "3", "4", "5"}, CorrectIndex: 3}
	for seed := int64(0); seed < 200; seed++ {
		got := Shuffle(q, rand.New(rand.NewSource(seed)))
		if got.Options[got.CorrectIndex] != "4" {
			t.Fatalf("seed %d: correct option %q", seed, got.Options[got.CorrectIndex])
		}
		if len(got.Options) != len(q.Options) {
			t.Fatalf("seed %d: option count changed", seed)
		}
	}
}

func TestShuffleHandlesDuplicateOptionText(t *testing.T) {
	q := domain.Question{Text: "dup", Options: []string{"same", "same", "other"}, CorrectIndex: 1}
	forEachPermutation(3, func(perm []int) {
		got := permute(q, perm)
		if perm[got.CorrectIndex] != 1 {
			t.Fatalf("perm %v: correct index %d maps to original %d", perm, got.CorrectIndex, perm[got.CorrectIndex])
		}
	})
}

func TestShuffleDoesNotMutateInput(t *testing.T) {
	q := domain.Question{Text: "pick", Options: []string{"a", "b", "c"}, CorrectIndex: 0}
	for seed := int64(0); seed < 20; seed++ {
		_ = Shuffle(q, rand.New(rand.NewSource(seed)))
	}
	if q.Options[0] != "a" || q.Options[1] != "b" || q.Options[2] != "c" || q.CorrectIndex != 0 {
		t.Fatalf("input mutated: %+v", q)
	}
}

func TestTruncate(t *testing.T) {
	got, err := Truncate([]string{"hello", "hi", "привет"}, 3)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	want := []string{"hel", "hi", "при"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("option %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTruncateFlagsEmptyOption(t *testing.T) {
	_, err := Truncate([]string{"fine", ""}, 100)
	if !errors.Is(err, domain.ErrUnusableQuestion) {
		t.Fatalf("expected unusable question, got %v", err)
	}

	_, err = Truncate([]string{"a", "b"}, 0)
	if !errors.Is(err, domain.ErrUnusableQuestion) {
		t.Fatalf("expected unusable question for zero limit, got %v", err)
	}
}

// forEachPermutation calls fn with every permutation of [0, n) (Heap's algorithm).
func forEachPermutation(n int, fn func([]int)) {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	var generate func(k int)
	generate = func(k int) {
		if k == 1 {
			fn(append([]int(nil), perm...))
			return
		}
		for i := 0; i < k-1; i++ {
			generate(k - 1)
			if k%2 == 0 {
				perm[i], perm[k-1] = perm[k-1], perm[i]
			} else {
				perm[0], perm[k-1] = perm[k-1], perm[0]
			}
		}
		generate(k - 1)
	}
	generate(n)
}
