package telegram

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safechat/api/internal/llm"
	"safechat/api/internal/llm/llmtest"
	"safechat/api/internal/session"
	"safechat/api/internal/toxicity"
)

const chatID int64 = 100

type fakeBot struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
	reqs []tgbotapi.Chattable
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeBot) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	msgs := f.messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func (f *fakeBot) callbacks() []tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.CallbackConfig
	for _, c := range f.reqs {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb)
		}
	}
	return out
}

func newRouter(fake *llmtest.Fake, opts ...toxicity.Option) (*Router, *fakeBot) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	bot := &fakeBot{}
	return &Router{
		Bot:        bot,
		EngManager: llm.NewManager(fake),
		Engines:    llm.Engines{Gemini: fake},
		Analyzer:   toxicity.NewAnalyzer(fake, append(opts, toxicity.WithLogger(log))...),
		Sessions:   session.NewRegistry(),
		Log:        log,
	}, bot
}

func command(text string) tgbotapi.Update {
	cmd := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func text(s string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: s}}
}

func callback(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func keyboard(t *testing.T, m tgbotapi.MessageConfig) tgbotapi.InlineKeyboardMarkup {
	t.Helper()
	kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok, "reply markup is %T", m.ReplyMarkup)
	return kb
}

func TestStart_ResetsSession(t *testing.T) {
	r, bot := newRouter(llmtest.Texts())
	ctx := context.Background()
	r.HandleUpdate(ctx, command("/tone formal"))
	require.Equal(t, toxicity.Formal, r.Sessions.Get(chatID).Settings().Tone)

	r.HandleUpdate(ctx, command("/start"))
	assert.Contains(t, bot.last(t).Text, "SafeChat")
	assert.Equal(t, session.DefaultSettings(), r.Sessions.Get(chatID).Settings())
}

func TestTextBecomesDraft(t *testing.T) {
	r, bot := newRouter(llmtest.Texts())
	r.HandleUpdate(context.Background(), text("you are an idiot"))

	assert.Equal(t, "you are an idiot", r.Sessions.Get(chatID).Draft())
	kb := keyboard(t, bot.last(t))
	require.Len(t, kb.InlineKeyboard, 1)
	row := kb.InlineKeyboard[0]
	require.Len(t, row, 2)
	assert.Equal(t, "🔍 Analyze Message", row[0].Text)
	assert.Equal(t, "✨ Analyze & Rewrite", row[1].Text)
}

func TestAnalyze_EmptyDraft(t *testing.T) {
	fake := llmtest.Texts(`{"is_toxic": true, "score": 1}`)
	r, bot := newRouter(fake)

	r.HandleUpdate(context.Background(), callback(cbAnalyze))
	r.HandleUpdate(context.Background(), text("   "))
	r.HandleUpdate(context.Background(), callback(cbAnalyzeRewrite))

	assert.Equal(t, emptyInputText, bot.last(t).Text)
	assert.Equal(t, 0, fake.Calls())
	assert.Empty(t, r.Sessions.Get(chatID).History())
}

func TestAnalyzeAndRewrite(t *testing.T) {
	fake := llmtest.Texts(
		"```json\n{\"is_toxic\": true, \"score\": 0.9, \"reason\": \"insult\", \"categories\": [\"insult\", \"harassment\"]}\n```",
		"I disagree with you.",
	)
	r, bot := newRouter(fake)
	ctx := context.Background()

	r.HandleUpdate(ctx, text("you are an idiot"))
	r.HandleUpdate(ctx, callback(cbAnalyzeRewrite))

	m := bot.last(t)
	assert.Equal(t, tgbotapi.ModeMarkdown, m.ParseMode)
	assert.Contains(t, m.Text, "🔴 Toxic")
	assert.Contains(t, m.Text, "Toxicity Score: 0.90")
	assert.Contains(t, m.Text, "Risk Level: High")
	assert.Contains(t, m.Text, "Issues detected:* insult, harassment")
	assert.Contains(t, m.Text, "✨ *Suggested Rewrite*\nI disagree with you.")
	assert.Equal(t, "📋 Copy Rewrite", keyboard(t, m).InlineKeyboard[0][0].Text)
	assert.Len(t, r.Sessions.Get(chatID).History(), 1)

	r.HandleUpdate(ctx, command("/stats"))
	assert.Contains(t, bot.last(t).Text, "Messages Analyzed: 1")
	assert.Contains(t, bot.last(t).Text, "Toxic Detected: 1")
}

func TestAnalyzeOnly_NoRewriteButton(t *testing.T) {
	fake := llmtest.Texts(`{"is_toxic": false, "score": 0.1, "reason": "friendly"}`)
	r, bot := newRouter(fake)
	ctx := context.Background()

	r.HandleUpdate(ctx, text("hello"))
	r.HandleUpdate(ctx, callback(cbAnalyze))

	m := bot.last(t)
	assert.Contains(t, m.Text, "🟢 Safe")
	assert.Contains(t, m.Text, "Risk Level: Low")
	assert.NotContains(t, m.Text, "Suggested Rewrite")
	assert.Nil(t, m.ReplyMarkup)
	assert.Equal(t, 1, fake.Calls())
}

func TestAnalyze_DegradedIsShown(t *testing.T) {
	r, bot := newRouter(llmtest.Texts("I cannot answer that"))
	ctx := context.Background()
	r.HandleUpdate(ctx, text("hello"))
	r.HandleUpdate(ctx, callback(cbAnalyze))

	m := bot.last(t)
	assert.Contains(t, m.Text, "🟢 Safe")
	assert.Contains(t, m.Text, "default result shown")
	assert.Len(t, r.Sessions.Get(chatID).History(), 1)
}

func TestAnalyze_FailClosed(t *testing.T) {
	r, bot := newRouter(llmtest.Texts("garbage"), toxicity.WithPolicy(toxicity.FailClosed))
	ctx := context.Background()
	r.HandleUpdate(ctx, text("hello"))
	r.HandleUpdate(ctx, callback(cbAnalyze))

	assert.Contains(t, bot.last(t).Text, "Could not analyze")
	assert.Empty(t, r.Sessions.Get(chatID).History())
}

func TestCopyRewrite_OnlyAcknowledges(t *testing.T) {
	r, bot := newRouter(llmtest.Texts())
	r.HandleUpdate(context.Background(), callback(cbCopyRewrite))

	assert.Empty(t, bot.messages())
	cbs := bot.callbacks()
	require.Len(t, cbs, 1)
	assert.Equal(t, copiedText, cbs[0].Text)
}

func TestToneCommandAndCallback(t *testing.T) {
	r, bot := newRouter(llmtest.Texts())
	ctx := context.Background()

	r.HandleUpdate(ctx, command("/tone"))
	kb := keyboard(t, bot.last(t))
	assert.Len(t, kb.InlineKeyboard, 2)

	r.HandleUpdate(ctx, command("/tone friendly"))
	assert.Equal(t, toxicity.Friendly, r.Sessions.Get(chatID).Settings().Tone)

	r.HandleUpdate(ctx, command("/tone angry"))
	assert.Contains(t, bot.last(t).Text, "Unknown tone")
	assert.Equal(t, toxicity.Friendly, r.Sessions.Get(chatID).Settings().Tone)

	r.HandleUpdate(ctx, callback(cbTonePrefix+"Polite"))
	assert.Equal(t, toxicity.Polite, r.Sessions.Get(chatID).Settings().Tone)
}

func TestSensitivityCommand(t *testing.T) {
	r, bot := newRouter(llmtest.Texts())
	ctx := context.Background()

	r.HandleUpdate(ctx, command("/sensitivity 0.95"))
	assert.Contains(t, bot.last(t).Text, "between 0.3 and 0.9")
	assert.Equal(t, toxicity.DefaultSensitivity, r.Sessions.Get(chatID).Settings().Sensitivity)

	r.HandleUpdate(ctx, command("/sensitivity 0,45"))
	assert.Equal(t, 0.45, r.Sessions.Get(chatID).Settings().Sensitivity)
}

func TestHistoryAndClear(t *testing.T) {
	r, bot := newRouter(llmtest.Texts(`{"is_toxic": false, "score": 0.2}`))
	ctx := context.Background()

	r.HandleUpdate(ctx, command("/history"))
	assert.Equal(t, noHistoryText, bot.last(t).Text)

	r.HandleUpdate(ctx, text(strings.Repeat("x", 60)))
	r.HandleUpdate(ctx, callback(cbAnalyze))
	r.HandleUpdate(ctx, command("/history"))
	m := bot.last(t)
	assert.Contains(t, m.Text, strings.Repeat("x", 50)+"...")
	assert.Equal(t, "🗑 Clear History", keyboard(t, m).InlineKeyboard[0][0].Text)

	r.HandleUpdate(ctx, callback(cbClearHistory))
	assert.Equal(t, clearedText, bot.last(t).Text)
	assert.Empty(t, r.Sessions.Get(chatID).History())
}

func TestEngineCommand(t *testing.T) {
	gem := llmtest.Texts()
	gem.EngineName = "gemini"
	gpt := llmtest.Texts()
	gpt.EngineName = "gpt"

	r, bot := newRouter(gem)
	r.Engines = llm.Engines{Gemini: gem, OpenAI: gpt}
	ctx := context.Background()

	r.HandleUpdate(ctx, command("/engine gpt gpt-4.1"))
	cur := r.EngManager.Get(chatID)
	assert.Equal(t, "gpt", cur.Name())
	assert.Equal(t, "gpt-4.1", cur.GetModel())
	assert.Equal(t, "fake-1", gpt.GetModel())
	assert.Contains(t, bot.last(t).Text, "gpt (gpt-4.1)")

	r.HandleUpdate(ctx, command("/engine gpt"))
	assert.Same(t, gpt, r.EngManager.Get(chatID))

	r.HandleUpdate(ctx, command("/engine deepseek"))
	assert.Contains(t, bot.last(t).Text, "not configured")

	r.HandleUpdate(ctx, command("/engine yandex"))
	assert.Contains(t, bot.last(t).Text, "unknown engine")
	assert.Same(t, gpt, r.EngManager.Get(chatID))
}

func TestEngineCommand_ModelStaysPerChat(t *testing.T) {
	gem := llmtest.Texts(`{"is_toxic": false, "score": 0.1}`)
	gem.EngineName = "gemini"
	r, _ := newRouter(gem)
	ctx := context.Background()

	r.HandleUpdate(ctx, command("/engine gemini gemini-1.5-pro"))
	assert.Equal(t, "gemini-1.5-pro", r.EngManager.Get(chatID).GetModel())

	const otherChat int64 = 200
	assert.Equal(t, "fake-1", r.EngManager.Get(otherChat).GetModel())
	assert.Equal(t, "fake-1", r.EngManager.Default().GetModel())
	assert.Equal(t, "fake-1", gem.GetModel())

	other := tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: otherChat}, Text: "hi"}}
	r.HandleUpdate(ctx, other)
	r.HandleUpdate(ctx, tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-2",
		Data:    cbAnalyze,
		Message: &tgbotapi.Message{MessageID: 8, Chat: &tgbotapi.Chat{ID: otherChat}},
	}})
	assert.Equal(t, 1, gem.Calls())
}

func TestEsc(t *testing.T) {
	assert.Equal(t, `a\_b \*c\* \[d] 'e'`, esc("a_b *c* [d] `e`"))
}
