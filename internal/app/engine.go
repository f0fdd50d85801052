package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"quiz-poll-bot/internal/bank"
	"quiz-poll-bot/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxOptionLen = 100
	defaultRetryDelay   = 500 * time.Millisecond
)

// SessionRepository abstracts where quiz sessions live (in-memory, Redis-marked, etc).
type SessionRepository interface {
	// Put installs session for its chat and returns the session it replaced, if any.
	Put(session *Session) *Session
	Get(chatID int64) (*Session, bool)
	// Delete removes the chat's session only if it is still sessionID.
	Delete(chatID int64, sessionID string) bool
}

// PollRegistry tracks polls awaiting resolution.
type PollRegistry interface {
	Register(ctx context.Context, poll domain.PendingPoll) error
	// Claim atomically removes the poll and returns it marked resolved.
	// ok is false when the poll is unknown or was already claimed.
	Claim(ctx context.Context, pollID string) (poll domain.PendingPoll, ok bool, err error)
}

// Gateway delivers polls and status messages to a chat.
type Gateway interface {
	SendPoll(ctx context.Context, chatID int64, question string, options []string, correctIndex int) (string, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// PresetGateway is a Gateway that can deliver a poll under an ID the caller
// chose. The engine then registers the poll before sending it.
type PresetGateway interface {
	Gateway
	SendPollAs(ctx context.Context, pollID string, chatID int64, question string, options []string, correctIndex int) error
}

// Options tunes an Engine. Zero values fall back to defaults.
type Options struct {
	Timeout      time.Duration
	MaxOptionLen int
	RetryDelay   time.Duration
	Scheduler    Scheduler
	Rand         *rand.Rand
	Logger       *slog.Logger
}

// Engine runs quiz sessions: it sends polls, races answers against timeouts
// and reports the final score.
type Engine struct {
	bank     *bank.Bank
	sessions SessionRepository
	polls    PollRegistry
	gateway  Gateway
	timers   *timerSet
	log      *slog.Logger

	timeout      time.Duration
	maxOptionLen int
	retryDelay   time.Duration

	rndMu sync.Mutex
	rnd   *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
}

func NewEngine(b *bank.Bank, sessions SessionRepository, polls PollRegistry, gateway Gateway, opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxOptionLen <= 0 {
		opts.MaxOptionLen = DefaultMaxOptionLen
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		bank:         b,
		sessions:     sessions,
		polls:        polls,
		gateway:      gateway,
		timers:       newTimerSet(opts.Scheduler),
		log:          opts.Logger,
		timeout:      opts.Timeout,
		maxOptionLen: opts.MaxOptionLen,
		retryDelay:   opts.RetryDelay,
		rnd:          opts.Rand,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Timeout is how long a poll stays open before the session moves on.
func (e *Engine) Timeout() time.Duration {
	return e.timeout
}

// BankSize is the largest question count Start accepts.
func (e *Engine) BankSize() int {
	return e.bank.Len()
}

// Start begins a quiz of n questions for chatID, superseding any quiz the chat
// already has. An out-of-range n returns *domain.InvalidRequestError and
// leaves existing state untouched.
func (e *Engine) Start(ctx context.Context, chatID int64, n int) error {
	if n < 1 || n > e.bank.Len() {
		return &domain.InvalidRequestError{Requested: n, Max: e.bank.Len()}
	}
	questions, err := e.bank.Sample(n)
	if err != nil {
		return err
	}

	previous, hadPrevious := e.sessions.Get(chatID)
	if hadPrevious {
		e.cancelSession(ctx, previous)
	}

	session := NewSession(chatID, questions)
	if replaced := e.sessions.Put(session); replaced != nil && replaced != previous {
		e.cancelSession(ctx, replaced)
	}
	e.log.Info("quiz started", "chat_id", chatID, "session_id", session.ID, "questions", n)

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.state != StateInProgress {
		// a concurrent Start already replaced it
		return nil
	}
	e.advanceLocked(ctx, session)
	return nil
}

// HandleAnswer resolves pollID with the user's selection. Unknown, late and
// duplicate answers are ignored.
func (e *Engine) HandleAnswer(ctx context.Context, pollID string, option int) {
	e.resolve(ctx, pollID, option, true)
}

func (e *Engine) handleTimeout(pollID string) {
	e.resolve(e.ctx, pollID, 0, false)
}

// Resume retries the current question of a session whose last poll could not
// be sent. It is a no-op while a poll is outstanding.
func (e *Engine) Resume(ctx context.Context, chatID int64) error {
	session, ok := e.sessions.Get(chatID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.state != StateInProgress {
		return domain.ErrSessionNotFound
	}
	if session.activePoll != "" {
		return nil
	}
	e.advanceLocked(ctx, session)
	return nil
}

// Stop abandons the chat's quiz without a summary.
func (e *Engine) Stop(ctx context.Context, chatID int64) error {
	session, ok := e.sessions.Get(chatID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	e.cancelSession(ctx, session)
	e.sessions.Delete(chatID, session.ID)
	e.log.Info("quiz stopped", "chat_id", chatID, "session_id", session.ID)
	return nil
}

// Session returns a snapshot of the chat's current session.
func (e *Engine) Session(chatID int64) (SessionSnapshot, bool) {
	session, ok := e.sessions.Get(chatID)
	if !ok {
		return SessionSnapshot{}, false
	}
	return session.Snapshot(), true
}

// Close stops all pending timeouts. Sessions are left as they are.
func (e *Engine) Close() {
	e.cancel()
	e.timers.stopAll()
}

func (e *Engine) resolve(ctx context.Context, pollID string, option int, answered bool) {
	poll, ok, err := e.polls.Claim(ctx, pollID)
	if err != nil {
		e.log.Error("claim poll", "poll_id", pollID, "answered", answered, "err", err)
		if !answered && e.ctx.Err() == nil {
			// the fired timer is gone; without a new one the session never moves
			e.timers.schedule(pollID, e.retryDelay, func() { e.handleTimeout(pollID) })
		}
		return
	}
	if !ok {
		e.log.Debug("poll already resolved", "poll_id", pollID, "answered", answered)
		return
	}
	e.timers.cancel(pollID)

	session, ok := e.sessions.Get(poll.ChatID)
	if !ok || session.ID != poll.SessionID {
		e.log.Debug("poll belongs to a finished session", "poll_id", pollID, "session_id", poll.SessionID)
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.state != StateInProgress || session.activePoll != pollID {
		return
	}

	session.activePoll = ""
	if answered && option == poll.CorrectIndex {
		session.correct++
	}
	session.current++
	e.log.Debug("poll resolved", "poll_id", pollID, "chat_id", session.ChatID,
		"answered", answered, "correct", session.correct, "current", session.current)

	e.advanceLocked(ctx, session)
}

// advanceLocked sends the next usable question or completes the session.
// The caller holds session.mu.
func (e *Engine) advanceLocked(ctx context.Context, session *Session) {
	for session.current < len(session.questions) {
		question := e.shuffle(session.questions[session.current])

		options, err := bank.Truncate(question.Options, e.maxOptionLen)
		if errors.Is(err, domain.ErrUnusableQuestion) {
			e.log.Warn("skipping question", "chat_id", session.ChatID, "index", session.current, "err", err)
			e.notify(ctx, session.ChatID, SkipText)
			session.current++
			continue
		}

		text := fmt.Sprintf("[%d/%d] %s", session.current+1, len(session.questions), question.Text)
		poll := domain.PendingPoll{
			ChatID:       session.ChatID,
			SessionID:    session.ID,
			CorrectIndex: question.CorrectIndex,
		}
		if preset, ok := e.gateway.(PresetGateway); ok {
			err = e.registerAndSend(ctx, preset, &poll, text, options)
		} else {
			err = e.sendAndRegister(ctx, &poll, text, options)
		}
		if err != nil {
			e.log.Error("dispatch poll", "chat_id", session.ChatID, "index", session.current, "err", err)
			e.notify(ctx, session.ChatID, SendFailedText)
			return
		}
		session.activePoll = poll.PollID
		return
	}
	e.completeLocked(ctx, session)
}

func (e *Engine) completeLocked(ctx context.Context, session *Session) {
	session.state = StateCompleted
	e.notify(ctx, session.ChatID, SummaryText(session.correct, len(session.questions)))
	e.sessions.Delete(session.ChatID, session.ID)
	e.log.Info("quiz completed", "chat_id", session.ChatID, "session_id", session.ID,
		"correct", session.correct, "total", len(session.questions))
}

// cancelSession retires a session and invalidates its outstanding poll so a
// late answer or timer cannot touch whatever replaces it.
func (e *Engine) cancelSession(ctx context.Context, session *Session) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.state != StateInProgress {
		return
	}
	session.state = StateCancelled
	if session.activePoll == "" {
		return
	}
	if _, _, err := e.polls.Claim(ctx, session.activePoll); err != nil {
		e.log.Warn("claim superseded poll", "poll_id", session.activePoll, "err", err)
	}
	e.timers.cancel(session.activePoll)
	session.activePoll = ""
}

// sendAndRegister sends first because the platform assigns the poll ID.
// An answer that beats the registration is lost and the timeout advances.
func (e *Engine) sendAndRegister(ctx context.Context, poll *domain.PendingPoll, text string, options []string) error {
	pollID, err := e.retryOnce(ctx, func() (string, error) {
		return e.gateway.SendPoll(ctx, poll.ChatID, text, options, poll.CorrectIndex)
	})
	if err != nil {
		return err
	}
	poll.PollID = pollID
	if err := e.polls.Register(ctx, *poll); err != nil {
		return fmt.Errorf("register poll %s: %w", pollID, err)
	}
	e.timers.schedule(pollID, e.timeout, func() { e.handleTimeout(pollID) })
	return nil
}

// registerAndSend arms the poll before it is visible, so no answer can
// arrive ahead of the registry entry. A failed send withdraws it again.
func (e *Engine) registerAndSend(ctx context.Context, gateway PresetGateway, poll *domain.PendingPoll, text string, options []string) error {
	pollID := uuid.NewString()
	poll.PollID = pollID
	if err := e.polls.Register(ctx, *poll); err != nil {
		return fmt.Errorf("register poll %s: %w", pollID, err)
	}
	e.timers.schedule(pollID, e.timeout, func() { e.handleTimeout(pollID) })

	_, err := e.retryOnce(ctx, func() (string, error) {
		return pollID, gateway.SendPollAs(ctx, pollID, poll.ChatID, text, options, poll.CorrectIndex)
	})
	if err != nil {
		e.timers.cancel(pollID)
		if _, _, claimErr := e.polls.Claim(ctx, pollID); claimErr != nil {
			e.log.Warn("withdraw unsent poll", "poll_id", pollID, "err", claimErr)
		}
		return err
	}
	return nil
}

// retryOnce retries a failed send once before giving up.
func (e *Engine) retryOnce(ctx context.Context, send func() (string, error)) (string, error) {
	var pollID string
	op := func() error {
		id, err := send()
		if err != nil {
			return err
		}
		if id == "" {
			return backoff.Permanent(errors.New("gateway returned an empty poll id"))
		}
		pollID = id
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(e.retryDelay), 1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}
	return pollID, nil
}

func (e *Engine) notify(ctx context.Context, chatID int64, text string) {
	if err := e.gateway.SendMessage(ctx, chatID, text); err != nil {
		e.log.Warn("send message", "chat_id", chatID, "err", err)
	}
}

func (e *Engine) shuffle(q domain.Question) domain.Question {
	e.rndMu.Lock()
	defer e.rndMu.Unlock()
	return bank.Shuffle(q, e.rnd)
}
