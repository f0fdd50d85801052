package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	maxQuestionLen = 300
	minOpenPeriod  = 5 * time.Second
	maxOpenPeriod  = 600 * time.Second
)

// botAPI is the part of *tgbotapi.BotAPI the gateway uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Gateway sends quiz polls and status messages through the Telegram Bot API.
type Gateway struct {
	api        botAPI
	openPeriod time.Duration
	log        *slog.Logger
}

// NewGateway authorises against Telegram with token. Polls close on the
// client after openPeriod, which should match the engine timeout.
func NewGateway(token string, openPeriod time.Duration, log *slog.Logger) (*Gateway, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	log.Info("authorised on telegram", "account", api.Self.UserName)
	return newGateway(api, openPeriod, log), nil
}

func newGateway(api botAPI, openPeriod time.Duration, log *slog.Logger) *Gateway {
	if openPeriod < minOpenPeriod {
		openPeriod = minOpenPeriod
	}
	if openPeriod > maxOpenPeriod {
		openPeriod = maxOpenPeriod
	}
	return &Gateway{api: api, openPeriod: openPeriod, log: log}
}

// SendPoll posts a non-anonymous quiz poll and returns Telegram's poll ID.
func (g *Gateway) SendPoll(_ context.Context, chatID int64, question string, options []string, correctIndex int) (string, error) {
	cfg := tgbotapi.NewPoll(chatID, clipRunes(question, maxQuestionLen), options...)
	cfg.Type = "quiz"
	cfg.IsAnonymous = false
	cfg.CorrectOptionID = int64(correctIndex)
	cfg.OpenPeriod = int(g.openPeriod / time.Second)

	msg, err := g.api.Send(cfg)
	if err != nil {
		return "", fmt.Errorf("send poll: %w", err)
	}
	if msg.Poll == nil {
		return "", fmt.Errorf("send poll: response carries no poll")
	}
	return msg.Poll.ID, nil
}

func (g *Gateway) SendMessage(_ context.Context, chatID int64, text string) error {
	if _, err := g.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func clipRunes(s string, max int) string {
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
