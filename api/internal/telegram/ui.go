package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"safechat/api/internal/toxicity"
)

func makeAnalyzeKeyboard() tgbotapi.InlineKeyboardMarkup {
	analyze := tgbotapi.NewInlineKeyboardButtonData("🔍 Analyze Message", cbAnalyze)
	rewrite := tgbotapi.NewInlineKeyboardButtonData("✨ Analyze & Rewrite", cbAnalyzeRewrite)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(analyze, rewrite))
}

func makeCopyKeyboard() tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData("📋 Copy Rewrite", cbCopyRewrite)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
}

func makeClearKeyboard() tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData("🗑 Clear History", cbClearHistory)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
}

// Two tones per row.
func makeToneKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, t := range toxicity.Tones {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(string(t), cbTonePrefix+string(t)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// esc is a light escape for legacy Markdown.
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}
