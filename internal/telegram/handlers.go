package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aselcrombie/tabex-reminder-bot/internal/domain"
	"github.com/aselcrombie/tabex-reminder-bot/internal/engine"
)

// --- /start onboarding ---

func (r *Router) handleStart(ctx context.Context, chatID int64) {
	u, err := r.engine.Status(ctx, chatID)
	if err == nil {
		if u.Completed {
			r.sendText(chatID, completedText)
			return
		}
		r.sendText(chatID, fmt.Sprintf(
			"You are already registered.\nToday is day %d: %d tablets (%s).\n\n%s",
			u.CurrentDay, requiredDoses(u.CurrentDay), domain.IntervalDescription(u.CurrentDay), disclaimer))
		return
	}
	if !errors.Is(err, engine.ErrUnknownUser) {
		r.log.Error("status lookup failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, "Profile error. Please try again later.")
		return
	}

	r.setPending(chatID, &onboarding{step: stepOffset})
	r.sendText(chatID, askOffsetText)
}

func (r *Router) handleStartConfirm(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery) {
	r.answerCallback(cb.ID, "")
	o := r.getPending(chatID)
	if o == nil || o.step != stepConfirmDate {
		r.sendText(chatID, staleText)
		return
	}
	r.finishStart(ctx, chatID, o.tzOffset, o.todayISO)
}

func (r *Router) handleStartOtherDate(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery) {
	r.answerCallback(cb.ID, "")
	o := r.getPending(chatID)
	if o == nil || o.step != stepConfirmDate {
		r.sendText(chatID, staleText)
		return
	}
	o.step = stepCustomDate
	r.sendText(chatID, askDateText)
}

func (r *Router) finishStart(ctx context.Context, chatID int64, tzOffset int, startDate string) {
	u, err := r.engine.StartCourse(ctx, chatID, tzOffset, startDate, time.Now().UTC())
	if errors.Is(err, engine.ErrAlreadyStarted) {
		r.clearPending(chatID)
		r.sendText(chatID, "You are already registered. Use /status.")
		return
	}
	if err != nil {
		r.log.Error("start course failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, "Registration error. Please try again later.")
		return
	}
	r.clearPending(chatID)

	if u.Completed {
		r.sendText(chatID, completedText)
		return
	}

	var text string
	if u.CurrentDay == 1 {
		text = fmt.Sprintf(
			"Great! Today is your first day of Tabex (%s).\n\n"+
				"Take the first tablet and press «Ready» — I will remind you about the next dose.\n\n"+
				"📋 Read the instructions before starting: %s\n"+
				"By pressing «Ready» you confirm you have read the instructions and contraindications.\n\n%s",
			domain.FormatDateDisplay(u.StartDate), instructionURL, disclaimer)
	} else {
		text = fmt.Sprintf(
			"Registered from %s — today is day %d: %d tablets (%s).\n\n"+
				"Take the next tablet and press «Ready».\n\n%s",
			domain.FormatDateDisplay(u.StartDate), u.CurrentDay,
			requiredDoses(u.CurrentDay), domain.IntervalDescription(u.CurrentDay), disclaimer)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = readyKeyboard()
	_, _ = r.bot.Send(msg)
}

// --- Free-form text: onboarding inputs, then dose phrases ---

func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	if o := r.getPending(chatID); o != nil {
		switch o.step {
		case stepOffset:
			tz, err := domain.ParseOffset(text)
			if err != nil {
				r.sendText(chatID, badOffsetText)
				return
			}
			o.step = stepConfirmDate
			o.tzOffset = tz
			o.todayISO = domain.LocalDate(time.Now().UTC(), tz)

			msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
				"Confirm: your Tabex course starts today, %s?\n\n📋 Instructions: %s",
				domain.FormatDateDisplay(o.todayISO), instructionURL))
			msg.ReplyMarkup = startConfirmKeyboard()
			_, _ = r.bot.Send(msg)

		case stepCustomDate:
			date, err := domain.ParseDate(text)
			if err != nil {
				r.sendText(chatID, badDateText)
				return
			}
			r.finishStart(ctx, chatID, o.tzOffset, date)
		}
		return
	}

	lower := strings.ToLower(text)
	for _, phrase := range takenPhrases {
		if strings.Contains(lower, phrase) {
			r.confirmDose(ctx, chatID, nil)
			return
		}
	}
}

// --- Dose callbacks ---

func (r *Router) handleFirstReady(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery) {
	u, err := r.engine.ConfirmMorning(ctx, chatID, time.Now().UTC())
	switch {
	case errors.Is(err, engine.ErrInvalidTransition):
		r.answerCallback(cb.ID, "Already confirmed.")
		return
	case errors.Is(err, engine.ErrUnknownUser):
		r.answerCallback(cb.ID, "")
		r.sendText(chatID, staleText)
		return
	case err != nil:
		r.log.Error("confirm morning failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.answerCallback(cb.ID, "Error, try again.")
		return
	}

	next := localClock(u.NextReminderAt, u.TZOffset)
	r.answerCallback(cb.ID, "Got it.")
	r.editAppend(cb, fmt.Sprintf("✓ Check-in confirmed. Next reminder at %s.", next))
}

func (r *Router) handleTaken(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery) {
	r.confirmDose(ctx, chatID, cb)
}

// confirmDose handles both the inline «Taken» button and free-text
// confirmation phrases; cb is nil for the latter.
func (r *Router) confirmDose(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery) {
	u, dayDone, err := r.engine.ConfirmDose(ctx, chatID, time.Now().UTC())
	switch {
	case errors.Is(err, engine.ErrInvalidTransition):
		if cb != nil {
			r.answerCallback(cb.ID, "Today's doses are already logged.")
		}
		return
	case errors.Is(err, engine.ErrUnknownUser):
		return
	case err != nil:
		r.log.Error("confirm dose failed", zap.Int64("chatID", chatID), zap.Error(err))
		if cb != nil {
			r.answerCallback(cb.ID, "Error, try again.")
		}
		return
	}

	reply := doseLoggedText
	if dayDone {
		reply += " That's all for today — see you tomorrow morning."
	} else if u.NextReminderAt != nil {
		reply += fmt.Sprintf(" Next reminder at %s.", localClock(u.NextReminderAt, u.TZOffset))
	}

	if cb != nil {
		r.answerCallback(cb.ID, "")
		r.editAppend(cb, reply)
	} else {
		r.sendText(chatID, reply)
	}
}

func (r *Router) handlePostpone(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery) {
	_, err := r.engine.Postpone(ctx, chatID, time.Now().UTC(), 0)
	switch {
	case errors.Is(err, engine.ErrInvalidTransition):
		r.answerCallback(cb.ID, "Nothing to postpone.")
		return
	case errors.Is(err, engine.ErrUnknownUser):
		r.answerCallback(cb.ID, "")
		r.sendText(chatID, staleText)
		return
	case err != nil:
		r.log.Error("postpone failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.answerCallback(cb.ID, "Error, try again.")
		return
	}
	r.answerCallback(cb.ID, "Reminder in 15 minutes")
	r.editAppend(cb, postponeAckText)
}

func (r *Router) handleMissedYes(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery) {
	r.answerCallback(cb.ID, "")
	_, err := r.engine.ConfirmMissedDoses(ctx, chatID, time.Now().UTC())
	switch {
	case errors.Is(err, engine.ErrInvalidTransition):
		r.editAppend(cb, "Today's doses are already logged.")
		return
	case err != nil:
		r.log.Error("confirm missed failed", zap.Int64("chatID", chatID), zap.Error(err))
		return
	}
	r.editAppend(cb, missedFilledText)
}

func (r *Router) handleMissedNo(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery) {
	r.answerCallback(cb.ID, "")
	r.editAppend(cb, missedSkippedText)
}

// --- /status ---

func (r *Router) handleStatus(ctx context.Context, chatID int64) {
	u, err := r.engine.Status(ctx, chatID)
	if errors.Is(err, engine.ErrUnknownUser) {
		r.sendText(chatID, "You are not registered yet. Send /start to begin.")
		return
	}
	if err != nil {
		r.log.Error("status lookup failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, "Error reading your progress.")
		return
	}
	if u.Completed {
		r.sendText(chatID, completedText)
		return
	}

	next := "—"
	if u.PostponedUntil != nil {
		next = localClock(u.PostponedUntil, u.TZOffset)
	} else if u.NextReminderAt != nil {
		next = localClock(u.NextReminderAt, u.TZOffset)
	}

	r.sendText(chatID, fmt.Sprintf(
		"🧾 Course progress:\n"+
			"• Started: %s\n"+
			"• Day: %d of %d\n"+
			"• Doses today: %d of %d (%s)\n"+
			"• Next reminder: %s",
		domain.FormatDateDisplay(u.StartDate),
		u.CurrentDay, domain.CourseDays,
		u.TakenToday, requiredDoses(u.CurrentDay), domain.IntervalDescription(u.CurrentDay),
		next,
	))
}

// --- helpers ---

func requiredDoses(day int) int {
	plan, ok := domain.Lookup(day)
	if !ok {
		return 0
	}
	return plan.Doses
}

// localClock formats a UTC instant as HH:MM in the user's zone.
func localClock(t *time.Time, tzOffset int) string {
	if t == nil {
		return "—"
	}
	return domain.Local(*t, tzOffset).Format("15:04")
}
