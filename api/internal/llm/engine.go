package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Engine is a hosted text-completion model: prompt in, completion text out.
type Engine interface {
	Name() string
	GetModel() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelSwitcher is implemented by engines that can serve another model of the
// same provider. WithModel must not modify the receiver.
type ModelSwitcher interface {
	WithModel(model string) Engine
}

// Engines holds the configured engines by provider.
type Engines struct {
	Gemini   Engine
	OpenAI   Engine
	Deepseek Engine
}

// ByName resolves an engine by its command/API name.
func (e Engines) ByName(name string) (Engine, error) {
	var eng Engine
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gemini":
		eng = e.Gemini
	case "gpt", "openai":
		eng = e.OpenAI
	case "deepseek":
		eng = e.Deepseek
	default:
		return nil, fmt.Errorf("unknown engine %q: available gemini | gpt | deepseek", name)
	}
	if eng == nil {
		return nil, fmt.Errorf("engine %q is not configured", name)
	}
	return eng, nil
}

type Manager struct {
	def Engine
	m   sync.Map // chatID -> Engine
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Default() Engine { return m.def }

func (m *Manager) Get(chatID int64) Engine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Engine)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, e Engine) {
	m.m.Store(chatID, e)
}

func (m *Manager) Reset(chatID int64) {
	m.m.Delete(chatID)
}
