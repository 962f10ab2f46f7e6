// Package llmtest provides a scripted llm.Engine for tests.
package llmtest

import (
	"context"
	"sync"
	"time"

	"safechat/api/internal/llm"
)

// Reply is one scripted answer: either Text or Err.
type Reply struct {
	Text string
	Err  error
}

// Fake replays Replies in order; once they run out the last one repeats.
type Fake struct {
	EngineName string
	Model      string
	Replies    []Reply
	// Delay holds each call until it elapses or ctx is done.
	Delay time.Duration

	mu      sync.Mutex
	prompts []string
}

func New(replies ...Reply) *Fake {
	return &Fake{EngineName: "fake", Model: "fake-1", Replies: replies}
}

// Texts scripts plain successful replies.
func Texts(texts ...string) *Fake {
	replies := make([]Reply, 0, len(texts))
	for _, t := range texts {
		replies = append(replies, Reply{Text: t})
	}
	return New(replies...)
}

func (f *Fake) Name() string     { return f.EngineName }
func (f *Fake) GetModel() string { return f.Model }

// WithModel returns a new Fake with the same script and its own call log.
func (f *Fake) WithModel(model string) llm.Engine {
	return &Fake{EngineName: f.EngineName, Model: model, Replies: f.Replies, Delay: f.Delay}
}

func (f *Fake) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	n := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(f.Delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(f.Replies) == 0 {
		return "", nil
	}
	if n >= len(f.Replies) {
		n = len(f.Replies) - 1
	}
	r := f.Replies[n]
	return r.Text, r.Err
}

// Calls reports how many prompts were sent.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// Prompts returns a copy of all prompts sent so far.
func (f *Fake) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}
