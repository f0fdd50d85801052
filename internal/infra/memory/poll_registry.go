package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"quiz-poll-bot/internal/domain"
)

// PollRegistry is an in-memory implementation of app.PollRegistry.
// Claim is LoadAndDelete followed by a resolved-flag swap, so of any number
// of concurrent claimers exactly one wins.
type PollRegistry struct {
	polls sync.Map // poll ID -> *pendingEntry
}

type pendingEntry struct {
	poll     domain.PendingPoll
	resolved atomic.Bool
}

func NewPollRegistry() *PollRegistry {
	return &PollRegistry{}
}

func (r *PollRegistry) Register(_ context.Context, poll domain.PendingPoll) error {
	poll.Resolved = false
	r.polls.Store(poll.PollID, &pendingEntry{poll: poll})
	return nil
}

func (r *PollRegistry) Claim(_ context.Context, pollID string) (domain.PendingPoll, bool, error) {
	value, ok := r.polls.LoadAndDelete(pollID)
	if !ok {
		return domain.PendingPoll{}, false, nil
	}
	entry := value.(*pendingEntry)
	if !entry.resolved.CompareAndSwap(false, true) {
		return domain.PendingPoll{}, false, nil
	}
	poll := entry.poll
	poll.Resolved = true
	return poll, true, nil
}

// Len counts outstanding polls.
func (r *PollRegistry) Len() int {
	n := 0
	r.polls.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
