package app

import (
	"errors"
	"fmt"

	"quiz-poll-bot/internal/domain"
)

// User-facing texts. The bot speaks Uzbek.
const (
	WelcomeText    = "Salom! Quizni boshlash uchun /quiz ni bosing va nechta savol xohlayotganingizni yozing (masalan: /quiz 5)!"
	SkipText       = "Xato: Variantlar uzunligi cheklangan! Keyingi savolga o'tamiz."
	SendFailedText = "Savolni yuborib bo'lmadi. Davom etish uchun /next ni bosing."
	StoppedText    = "Quiz to'xtatildi. Natija saqlanmadi."
	NoSessionText  = "Faol quiz yo'q. Boshlash uchun /quiz ni bosing."
	UnknownText    = "Noma'lum buyruq."
)

// SummaryText is the final message of a completed quiz.
func SummaryText(correct, total int) string {
	return fmt.Sprintf("Quiz tugadi! Sizning natijangiz: %d dan %d. Keyingi savollar uchun yana /quiz ni bosing!", correct, total)
}

// InvalidCountText asks for a question count in [1, max].
func InvalidCountText(max int) string {
	return fmt.Sprintf("Iltimos, to'g'ri sonni kiriting (1 dan %d gacha)!", max)
}

// DescribeError maps an engine error to the text shown to the user.
func DescribeError(err error) string {
	var invalid *domain.InvalidRequestError
	switch {
	case errors.As(err, &invalid):
		return InvalidCountText(invalid.Max)
	case errors.Is(err, domain.ErrSessionNotFound):
		return NoSessionText
	default:
		return SendFailedText
	}
}
