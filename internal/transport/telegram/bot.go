package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"quiz-poll-bot/internal/app"
	"quiz-poll-bot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot turns Telegram updates into engine calls.
type Bot struct {
	gateway *Gateway
	engine  *app.Engine
	log     *slog.Logger
}

func NewBot(gateway *Gateway, engine *app.Engine, log *slog.Logger) *Bot {
	return &Bot{gateway: gateway, engine: engine, log: log}
}

// Run long-polls for updates until ctx is cancelled. Each update is handled
// on its own goroutine so one slow chat never stalls the others.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.gateway.api.GetUpdatesChan(u)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.gateway.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate dispatches a single update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.PollAnswer != nil:
		b.handlePollAnswer(ctx, update.PollAnswer)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) handlePollAnswer(ctx context.Context, answer *tgbotapi.PollAnswer) {
	if len(answer.OptionIDs) == 0 {
		// vote retracted
		return
	}
	b.engine.HandleAnswer(ctx, answer.PollID, answer.OptionIDs[0])
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		b.reply(ctx, chatID, app.WelcomeText)
	case "quiz":
		n, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
		if err != nil {
			b.reply(ctx, chatID, app.DescribeError(&domain.InvalidRequestError{Max: b.engine.BankSize()}))
			return
		}
		if err := b.engine.Start(ctx, chatID, n); err != nil {
			b.log.Info("quiz not started", "chat_id", chatID, "err", err)
			b.reply(ctx, chatID, app.DescribeError(err))
		}
	case "next":
		if err := b.engine.Resume(ctx, chatID); err != nil {
			b.reply(ctx, chatID, app.DescribeError(err))
		}
	case "stop":
		if err := b.engine.Stop(ctx, chatID); err != nil {
			b.reply(ctx, chatID, app.DescribeError(err))
			return
		}
		b.reply(ctx, chatID, app.StoppedText)
	default:
		b.reply(ctx, chatID, app.UnknownText)
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.gateway.SendMessage(ctx, chatID, text); err != nil {
		b.log.Warn("reply failed", "chat_id", chatID, "err", err)
	}
}
