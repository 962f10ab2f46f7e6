package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"safechat/api/internal/session"
)

const (
	cbAnalyze        = "analyze"
	cbAnalyzeRewrite = "analyze_rewrite"
	cbCopyRewrite    = "copy_rewrite"
	cbClearHistory   = "clear_history"
	cbTonePrefix     = "tone:"
)

func (r *Router) handleCallback(ctx context.Context, cb tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	cid := cb.Message.Chat.ID

	ack := ""
	if cb.Data == cbCopyRewrite {
		ack = copiedText
	}
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, ack))

	switch {
	case cb.Data == cbAnalyze:
		r.runAnalysis(ctx, cid, false)
	case cb.Data == cbAnalyzeRewrite:
		r.runAnalysis(ctx, cid, true)
	case cb.Data == cbCopyRewrite:
		// Telegram has no clipboard access; the acknowledgement is all it does.
	case cb.Data == cbClearHistory:
		r.Sessions.Get(cid).Clear()
		r.removeKeyboard(cid, cb.Message.MessageID)
		r.send(cid, clearedText)
	case strings.HasPrefix(cb.Data, cbTonePrefix):
		tone, err := r.Sessions.Get(cid).SetTone(strings.TrimPrefix(cb.Data, cbTonePrefix))
		if err != nil {
			r.send(cid, "Unknown tone. Available: "+toneList())
			return
		}
		r.removeKeyboard(cid, cb.Message.MessageID)
		r.send(cid, "✅ Rewrite style: "+string(tone))
	}
}

// runAnalysis submits the chat's draft and renders the verdict.
func (r *Router) runAnalysis(ctx context.Context, chatID int64, rewrite bool) {
	sess := r.Sessions.Get(chatID)
	eng := r.EngManager.Get(chatID)

	_, _ = r.Bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	sub, err := sess.Submit(ctx, r.Analyzer, session.Input{Text: sess.Draft(), Rewrite: rewrite, Engine: eng})
	switch {
	case errors.Is(err, session.ErrEmptyInput):
		r.send(chatID, emptyInputText)
		return
	case errors.Is(err, session.ErrBusy):
		r.send(chatID, "⏳ Still analyzing the previous message, please wait.")
		return
	case isDetectionFailure(err):
		r.logger().WithError(err).WithField("chat_id", chatID).Warn("detection failed")
		r.send(chatID, "❌ Could not analyze the message right now. Please try again later.")
		return
	case err != nil:
		r.logger().WithError(err).WithField("chat_id", chatID).Error("analysis failed")
		r.send(chatID, "❌ Analysis failed.")
		return
	}

	r.logger().WithFields(logrus.Fields{
		"chat_id":     chatID,
		"analysis_id": sub.ID,
		"status":      sub.Analysis.Outcome.Status,
		"toxic":       sub.Result().IsToxic,
	}).Info("message analyzed")

	var kb *tgbotapi.InlineKeyboardMarkup
	if sub.Analysis.Rewrite != "" {
		k := makeCopyKeyboard()
		kb = &k
	}
	r.sendMarkdown(chatID, formatAnalysis(sub.Analysis), kb)
}
