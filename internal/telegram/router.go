package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aselcrombie/tabex-reminder-bot/internal/engine"
)

// Onboarding steps for the /start conversation.
const (
	stepOffset      = "await_offset"
	stepConfirmDate = "await_date_confirm"
	stepCustomDate  = "await_custom_date"
)

// onboarding is the in-memory state of one chat's /start conversation.
// It is not persisted; a restart simply asks the user to /start again.
type onboarding struct {
	step     string
	tzOffset int
	todayISO string
}

// Router wires Telegram updates to engine events and holds the
// transient onboarding state.
type Router struct {
	bot    *tgbotapi.BotAPI
	log    *zap.Logger
	engine *engine.Engine

	mu      sync.Mutex
	pending map[int64]*onboarding
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, eng *engine.Engine) *Router {
	return &Router{
		bot:     bot,
		log:     log,
		engine:  eng,
		pending: make(map[int64]*onboarding),
	}
}

func (r *Router) setPending(chatID int64, o *onboarding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[chatID] = o
}

func (r *Router) getPending(chatID int64) *onboarding {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[chatID]
}

func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, chatID)
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message
		chatID := msg.Chat.ID
		text := strings.TrimSpace(msg.Text)

		switch {
		case strings.HasPrefix(text, "/start"):
			r.handleStart(ctx, chatID)
		case strings.HasPrefix(text, "/status"):
			r.handleStatus(ctx, chatID)
		default:
			r.handleFreeForm(ctx, chatID, text)
		}
		return
	}

	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		chatID := cb.Message.Chat.ID

		switch cb.Data {
		case cbStartYes:
			r.handleStartConfirm(ctx, chatID, cb)
		case cbStartNo:
			r.handleStartOtherDate(ctx, chatID, cb)
		case cbFirstReady:
			r.handleFirstReady(ctx, chatID, cb)
		case cbTaken:
			r.handleTaken(ctx, chatID, cb)
		case cbPostpone:
			r.handlePostpone(ctx, chatID, cb)
		case cbMissedYes:
			r.handleMissedYes(ctx, chatID, cb)
		case cbMissedNo:
			r.handleMissedNo(ctx, chatID, cb)
		default:
			// unknown callback — ignore silently
		}
		return
	}
}

func (r *Router) sendText(chatID int64, text string) {
	_, _ = r.bot.Send(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) answerCallback(id, text string) {
	_, _ = r.bot.Request(tgbotapi.NewCallback(id, text))
}

// editAppend appends a line to the callback's source message and drops
// its keyboard, so a second press cannot replay the event.
func (r *Router) editAppend(cb *tgbotapi.CallbackQuery, suffix string) {
	base := cb.Message.Text
	if base == "" {
		base = "Dose"
	}
	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, base+"\n\n"+suffix)
	_, _ = r.bot.Send(edit)
}
