package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"safechat/api/internal/llm"
	"safechat/api/internal/toxicity"
)

const startText = `🛡️ SafeChat - Toxicity Filter & Rewriter
Detect toxic messages and rewrite them politely using AI.

Send me a message, then choose 🔍 Analyze Message or ✨ Analyze & Rewrite.

Commands:
/tone [name] - rewrite style
/sensitivity [0.3-0.9] - detection sensitivity
/stats - session counters
/history - analyzed messages
/clear - clear history
/engine [name] [model] - switch model
/health - status`

func (r *Router) HandleCommand(ctx context.Context, m tgbotapi.Message) {
	cid := m.Chat.ID
	args := strings.Fields(m.CommandArguments())
	switch m.Command() {
	case "start":
		// A fresh start drops settings, history and the engine override.
		r.Sessions.Reset(cid)
		r.EngManager.Reset(cid)
		r.send(cid, startText)
	case "help":
		r.send(cid, startText)
	case "health":
		eng := r.EngManager.Get(cid)
		if eng == nil {
			r.send(cid, "⚠️ No engine configured")
			return
		}
		r.send(cid, fmt.Sprintf("✅ OK\nEngine: %s (%s)", eng.Name(), eng.GetModel()))
	case "tone":
		r.handleTone(cid, args)
	case "sensitivity":
		r.handleSensitivity(cid, args)
	case "stats":
		r.sendMarkdown(cid, formatStats(r.Sessions.Get(cid).Stats()), nil)
	case "history":
		h := r.Sessions.Get(cid).History()
		if len(h) == 0 {
			r.send(cid, noHistoryText)
			return
		}
		kb := makeClearKeyboard()
		r.sendMarkdown(cid, formatHistory(h), &kb)
	case "clear":
		r.Sessions.Get(cid).Clear()
		r.send(cid, clearedText)
	case "engine":
		r.handleEngineCommand(cid, args)
	default:
		r.send(cid, "Unknown command. Try /start")
	}
}

func (r *Router) handleTone(chatID int64, args []string) {
	sess := r.Sessions.Get(chatID)
	if len(args) == 0 {
		msg := tgbotapi.NewMessage(chatID, "Rewrite style: "+string(sess.Settings().Tone)+"\nPick one:")
		msg.ReplyMarkup = makeToneKeyboard()
		r.sendMsg(msg)
		return
	}
	tone, err := sess.SetTone(args[0])
	if err != nil {
		r.send(chatID, "Unknown tone. Available: "+toneList())
		return
	}
	r.send(chatID, "✅ Rewrite style: "+string(tone))
}

func (r *Router) handleSensitivity(chatID int64, args []string) {
	sess := r.Sessions.Get(chatID)
	if len(args) == 0 {
		r.send(chatID, fmt.Sprintf("Detection sensitivity: %.2f\nUsage: /sensitivity 0.3..0.9", sess.Settings().Sensitivity))
		return
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(args[0], ",", "."), 64)
	if err == nil {
		err = sess.SetSensitivity(v)
	}
	if err != nil {
		r.send(chatID, fmt.Sprintf("Sensitivity must be a number between %.1f and %.1f", toxicity.MinSensitivity, toxicity.MaxSensitivity))
		return
	}
	r.send(chatID, fmt.Sprintf("✅ Detection sensitivity: %.2f", v))
}

// handleEngineCommand switches the chat's engine:
//
//	/engine gemini [model]
//	/engine gpt [model]
//	/engine deepseek [model]
func (r *Router) handleEngineCommand(chatID int64, args []string) {
	if len(args) == 0 {
		cur := "none"
		if e := r.EngManager.Get(chatID); e != nil {
			cur = e.Name() + " (" + e.GetModel() + ")"
		}
		r.send(chatID, "Current engine: "+cur+"\nUsage: /engine {gemini|gpt|deepseek} [model]")
		return
	}
	eng, err := r.Engines.ByName(args[0])
	if err != nil {
		r.send(chatID, "❌ "+err.Error())
		return
	}
	if len(args) > 1 {
		ms, ok := eng.(llm.ModelSwitcher)
		if !ok {
			r.send(chatID, "❌ "+eng.Name()+" cannot switch models")
			return
		}
		// A per-chat copy: other chats keep the shared engine's model.
		eng = ms.WithModel(args[1])
	}
	r.EngManager.Set(chatID, eng)
	r.logger().WithField("chat_id", chatID).WithField("engine", eng.Name()).Info("engine switched")
	r.send(chatID, "✅ Engine: "+eng.Name()+" ("+eng.GetModel()+")")
}

func toneList() string {
	names := make([]string, 0, len(toxicity.Tones))
	for _, t := range toxicity.Tones {
		names = append(names, string(t))
	}
	return strings.Join(names, " | ")
}

func isDetectionFailure(err error) bool {
	return errors.Is(err, toxicity.ErrDetectionFailed)
}
