package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"safechat/api/internal/llm"
	"safechat/api/internal/session"
)

const maxMessageLen = 3900

// Sender is the subset of *tgbotapi.BotAPI the router uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Router struct {
	Bot        Sender
	EngManager *llm.Manager
	Engines    llm.Engines
	Analyzer   session.Analyzer
	Sessions   *session.Registry
	Log        *logrus.Logger
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, *upd.CallbackQuery)
		return
	}
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	if upd.Message.IsCommand() {
		r.HandleCommand(ctx, *upd.Message)
		return
	}
	if strings.TrimSpace(upd.Message.Text) == "" {
		return
	}
	r.acceptDraft(upd.Message.Chat.ID, upd.Message.Text)
}

// acceptDraft keeps the text as the chat's pending message and offers the
// two analysis actions.
func (r *Router) acceptDraft(chatID int64, text string) {
	r.Sessions.Get(chatID).SetDraft(text)
	msg := tgbotapi.NewMessage(chatID, "📝 Message received. What should I do with it?")
	msg.ReplyMarkup = makeAnalyzeKeyboard()
	r.sendMsg(msg)
}

func (r *Router) send(chatID int64, text string) {
	r.sendMsg(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) sendMarkdown(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	r.sendMsg(msg)
}

func (r *Router) sendMsg(msg tgbotapi.MessageConfig) {
	if rs := []rune(msg.Text); len(rs) > maxMessageLen {
		msg.Text = string(rs[:maxMessageLen]) + "…"
	}
	if _, err := r.Bot.Send(msg); err != nil {
		r.logger().WithError(err).WithField("chat_id", msg.ChatID).Warn("telegram send failed")
	}
}

func (r *Router) removeKeyboard(chatID int64, msgID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	_, _ = r.Bot.Request(edit)
}

func (r *Router) logger() *logrus.Logger {
	if r.Log != nil {
		return r.Log
	}
	return logrus.StandardLogger()
}
