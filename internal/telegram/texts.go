package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

const (
	disclaimer     = "⚠️ This bot is not a doctor and gives no medical advice."
	instructionURL = "https://tabex.kz/"

	askOffsetText = "Welcome to Tabex Reminder.\n\n" +
		"Enter your timezone as a UTC offset (e.g. +5 for UTC+5 or -7 for UTC-7):"
	badOffsetText = "Invalid format. Enter whole hours from UTC, e.g. +5 or -7:"
	askDateText   = "Enter the course start date as YYYY-MM-DD (e.g. 2025-03-01):"
	badDateText   = "Invalid format. Enter the date as YYYY-MM-DD (e.g. 2025-03-01):"
	staleText     = "This session has expired. Send /start again."

	completedText = "You have already finished the course. " +
		"The bot is a reminder only and does not replace medical advice."
	congratsText = "Congratulations! You have completed the 25-day Tabex course. " +
		"The bot is a reminder only and does not replace medical advice."

	doseLoggedText    = "✓ Logged."
	postponeAckText   = "I'll remind you in 15 minutes."
	missedFilledText  = "Doses marked as taken."
	missedSkippedText = "Okay."
)

// Inline callback names.
const (
	cbTaken      = "taken"
	cbPostpone   = "postpone"
	cbMissedYes  = "missed_yes"
	cbMissedNo   = "missed_no"
	cbFirstReady = "first_ready"
	cbStartYes   = "start_confirm_yes"
	cbStartNo    = "start_confirm_no"
)

// Free-text phrases that count as a dose confirmation.
var takenPhrases = []string{"taken", "took", "done", "pill taken"}

func doseKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Taken", cbTaken),
			tgbotapi.NewInlineKeyboardButtonData("Remind me later", cbPostpone),
		),
	)
}

func readyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Ready", cbFirstReady),
		),
	)
}

func missedKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes", cbMissedYes),
			tgbotapi.NewInlineKeyboardButtonData("No", cbMissedNo),
		),
	)
}

func startConfirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Confirm", cbStartYes),
			tgbotapi.NewInlineKeyboardButtonData("Another date", cbStartNo),
		),
	)
}
