package app_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"quiz-poll-bot/internal/app"
	"quiz-poll-bot/internal/domain"
	"quiz-poll-bot/internal/infra/memory"
	infraredis "quiz-poll-bot/internal/infra/redis"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestTimeoutRetriesAfterClaimError(t *testing.T) {
	ctx := context.Background()
	registry := &flakyRegistry{}
	h := newFlakyHarness(t, registry)

	if err := h.engine.Start(ctx, 1, 2); err != nil {
		t.Fatalf("start: %v", err)
	}
	registry.failClaims(1)
	before := h.clock.scheduled()
	h.clock.fireLast(t)

	if h.clock.scheduled() != before+1 {
		t.Fatalf("expected the timeout to be re-armed")
	}
	snap, _ := h.engine.Session(1)
	if snap.Current != 0 || snap.ActivePoll != h.gateway.lastPoll(t).id {
		t.Fatalf("failed claim must not move the session, got %+v", snap)
	}

	h.clock.fireLast(t)
	snap, _ = h.engine.Session(1)
	if snap.Current != 1 || h.gateway.pollCount() != 2 {
		t.Fatalf("expected second question after retry, got %+v polls=%d", snap, h.gateway.pollCount())
	}
}

func TestAnswerClaimErrorLeavesTimeoutArmed(t *testing.T) {
	ctx := context.Background()
	registry := &flakyRegistry{}
	h := newFlakyHarness(t, registry)

	if err := h.engine.Start(ctx, 1, 2); err != nil {
		t.Fatalf("start: %v", err)
	}
	poll := h.gateway.lastPoll(t)
	registry.failClaims(1)
	h.engine.HandleAnswer(ctx, poll.id, poll.correct)

	if h.clock.last(t).isStopped() {
		t.Fatalf("timeout must stay armed after a failed claim")
	}
	h.clock.fireLast(t)
	snap, _ := h.engine.Session(1)
	if snap.Current != 1 || snap.Correct != 0 {
		t.Fatalf("expected timeout to advance without a point, got %+v", snap)
	}
}

func TestRegisterFailureLeavesSessionResumable(t *testing.T) {
	ctx := context.Background()
	registry := &flakyRegistry{}
	h := newFlakyHarness(t, registry)
	registry.failRegisters(1)

	if err := h.engine.Start(ctx, 1, 2); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !h.gateway.sawMessage(app.SendFailedText) {
		t.Fatalf("expected send-failed notice")
	}
	snap, ok := h.engine.Session(1)
	if !ok || snap.State != app.StateInProgress || snap.ActivePoll != "" || snap.Current != 0 {
		t.Fatalf("unexpected session after failed register %+v", snap)
	}
	if h.clock.scheduled() != 0 {
		t.Fatalf("no timeout may be armed for an unregistered poll")
	}

	if err := h.engine.Resume(ctx, 1); err != nil {
		t.Fatalf("resume: %v", err)
	}
	poll := h.gateway.lastPoll(t)
	h.engine.HandleAnswer(ctx, poll.id, poll.correct)
	snap, _ = h.engine.Session(1)
	if snap.Current != 1 || snap.Correct != 1 {
		t.Fatalf("expected resumed quiz to score, got %+v", snap)
	}
}

func TestRedisOutageDuringTimeoutDoesNotStrandSession(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	h := newCustomHarness(t, sampleQuestions(5), func(h *harness) (app.PollRegistry, app.Gateway) {
		return infraredis.NewPollRegistry(client, time.Minute), h.gateway
	})
	if err := h.engine.Start(ctx, 1, 2); err != nil {
		t.Fatalf("start: %v", err)
	}

	mr.SetError("ERR transient")
	h.clock.fireLast(t)
	mr.SetError("")
	h.clock.fireLast(t)

	snap, _ := h.engine.Session(1)
	if snap.Current != 1 || h.gateway.pollCount() != 2 {
		t.Fatalf("session stranded after redis error: %+v polls=%d", snap, h.gateway.pollCount())
	}
}

func TestPresetGatewayRegistersBeforeSending(t *testing.T) {
	ctx := context.Background()
	var gateway *presetGateway
	h := newCustomHarness(t, sampleQuestions(5), func(h *harness) (app.PollRegistry, app.Gateway) {
		gateway = &presetGateway{fakeGateway: h.gateway, polls: h.polls}
		return h.polls, gateway
	})
	gateway.answer = func(pollID string, option int) {
		go h.engine.HandleAnswer(ctx, pollID, option)
	}

	if err := h.engine.Start(ctx, 1, 3); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(h.gateway.lastMessage(), "3 dan 3") {
		if time.Now().After(deadline) {
			t.Fatalf("instant answers were lost, last message %q", h.gateway.lastMessage())
		}
		time.Sleep(5 * time.Millisecond)
	}
	for i, n := range gateway.registeredAtSend() {
		if n != 1 {
			t.Fatalf("poll %d: expected it registered before send, registry held %d", i, n)
		}
	}
}

func TestPresetGatewayFailureWithdrawsPoll(t *testing.T) {
	ctx := context.Background()
	h := newCustomHarness(t, sampleQuestions(5), func(h *harness) (app.PollRegistry, app.Gateway) {
		return h.polls, &presetGateway{fakeGateway: h.gateway, polls: h.polls}
	})
	h.gateway.failNext(2)

	if err := h.engine.Start(ctx, 1, 2); err != nil {
		t.Fatalf("start: %v", err)
	}
	if h.polls.Len() != 0 {
		t.Fatalf("unsent poll must be withdrawn, %d left", h.polls.Len())
	}
	if !h.clock.last(t).isStopped() {
		t.Fatalf("timeout of an unsent poll must be stopped")
	}
	snap, _ := h.engine.Session(1)
	if snap.ActivePoll != "" || snap.State != app.StateInProgress {
		t.Fatalf("unexpected session %+v", snap)
	}

	if err := h.engine.Resume(ctx, 1); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if h.gateway.pollCount() != 1 || h.polls.Len() != 1 {
		t.Fatalf("expected resumed poll, polls=%d registered=%d", h.gateway.pollCount(), h.polls.Len())
	}
}

func newFlakyHarness(t *testing.T, registry *flakyRegistry) *harness {
	t.Helper()
	return newCustomHarness(t, sampleQuestions(5), func(h *harness) (app.PollRegistry, app.Gateway) {
		registry.inner = h.polls
		return registry, h.gateway
	})
}

// flakyRegistry fails a set number of calls before delegating.
type flakyRegistry struct {
	inner *memory.PollRegistry

	mu            sync.Mutex
	registerFails int
	claimFails    int
}

func (r *flakyRegistry) failRegisters(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerFails = n
}

func (r *flakyRegistry) failClaims(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claimFails = n
}

func (r *flakyRegistry) take(counter *int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if *counter == 0 {
		return false
	}
	*counter--
	return true
}

func (r *flakyRegistry) Register(ctx context.Context, poll domain.PendingPoll) error {
	if r.take(&r.registerFails) {
		return errors.New("registry unavailable")
	}
	return r.inner.Register(ctx, poll)
}

func (r *flakyRegistry) Claim(ctx context.Context, pollID string) (domain.PendingPoll, bool, error) {
	if r.take(&r.claimFails) {
		return domain.PendingPoll{}, false, errors.New("registry unavailable")
	}
	return r.inner.Claim(ctx, pollID)
}

// presetGateway delivers polls under engine-chosen IDs and notes how many
// polls were registered at the moment of each send.
type presetGateway struct {
	*fakeGateway
	polls  *memory.PollRegistry
	answer func(pollID string, option int)

	mu         sync.Mutex
	registered []int
}

func (g *presetGateway) SendPollAs(ctx context.Context, pollID string, chatID int64, question string, options []string, correct int) error {
	if _, err := g.fakeGateway.SendPoll(ctx, chatID, question, options, correct); err != nil {
		return err
	}
	g.mu.Lock()
	g.registered = append(g.registered, g.polls.Len())
	g.mu.Unlock()
	if g.answer != nil {
		g.answer(pollID, correct)
	}
	return nil
}

func (g *presetGateway) registeredAtSend() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int(nil), g.registered...)
}
