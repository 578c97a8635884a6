package telegram

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aselcrombie/tabex-reminder-bot/internal/domain"
)

// Sender renders and delivers the engine's outbound notifications.
// It implements engine.Notifier.
type Sender struct {
	bot *tgbotapi.BotAPI
}

func NewSender(bot *tgbotapi.BotAPI) *Sender {
	return &Sender{bot: bot}
}

func (s *Sender) MorningMessage(chatID int64, day, doses int, interval time.Duration) error {
	text := fmt.Sprintf(
		"Good morning! Today is day %d of your Tabex course.\n"+
			"You need to take %d tablets today (%s).\n"+
			"Take the first tablet and press «Ready» — the next reminder will follow after the interval.",
		day, doses, domain.FormatInterval(interval),
	)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = readyKeyboard()
	_, err := s.bot.Send(msg)
	return err
}

func (s *Sender) DoseReminder(chatID int64, day int) error {
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Reminder: Tabex dose (day %d).", day))
	msg.ReplyMarkup = doseKeyboard()
	_, err := s.bot.Send(msg)
	return err
}

func (s *Sender) MissedDoseNotice(chatID int64, day, missed int) error {
	msg := tgbotapi.NewMessage(chatID,
		fmt.Sprintf("You missed %d dose(s) today (day %d). Take them now?", missed, day))
	msg.ReplyMarkup = missedKeyboard()
	_, err := s.bot.Send(msg)
	return err
}

func (s *Sender) CourseCompleteNotice(chatID int64) error {
	_, err := s.bot.Send(tgbotapi.NewMessage(chatID, congratsText))
	return err
}
