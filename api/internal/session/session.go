package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"safechat/api/internal/llm"
	"safechat/api/internal/toxicity"
)

var (
	ErrEmptyInput = errors.New("please enter some text to analyze")
	ErrBusy       = errors.New("an analysis is already running")
)

const (
	PreviewRunes    = 50
	TimestampLayout = "15:04:05"
)

type Settings struct {
	Tone        toxicity.Tone
	Sensitivity float64
}

func DefaultSettings() Settings {
	return Settings{Tone: toxicity.Professional, Sensitivity: toxicity.DefaultSensitivity}
}

// HistoryEntry records one completed analysis. Entries are never mutated.
type HistoryEntry struct {
	Text      string
	Toxic     bool
	Score     float64
	Timestamp string
}

type Stats struct {
	Total int
	Toxic int
}

// Analyzer is the part of toxicity.Analyzer a session needs.
type Analyzer interface {
	Analyze(ctx context.Context, req toxicity.Request) (toxicity.Analysis, error)
}

type Input struct {
	Text    string
	Rewrite bool
	// Engine overrides the analyzer default for this submission.
	Engine llm.Engine
}

type Submission struct {
	ID       string
	Analysis toxicity.Analysis
	Entry    HistoryEntry
}

// Result is the verdict shown to the user.
func (s Submission) Result() toxicity.Result { return s.Analysis.Outcome.Result }

// Session is one user's interactive state: settings, history and the
// ephemeral UI fields. It lives only in memory.
type Session struct {
	mu       sync.Mutex
	settings Settings
	history  []HistoryEntry
	draft    string
	rewrite  string

	inflight atomic.Bool
	now      func() time.Time
}

func New() *Session {
	return &Session{settings: DefaultSettings(), now: time.Now}
}

// WithClock replaces the wall clock used for history timestamps.
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Session) SetTone(name string) (toxicity.Tone, error) {
	tone, err := toxicity.ParseTone(name)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.settings.Tone = tone
	s.mu.Unlock()
	return tone, nil
}

func (s *Session) SetSensitivity(v float64) error {
	if err := toxicity.ValidateSensitivity(v); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings.Sensitivity = v
	s.mu.Unlock()
	return nil
}

func (s *Session) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HistoryEntry(nil), s.history...)
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Total: len(s.history)}
	for _, h := range s.history {
		if h.Toxic {
			st.Toxic++
		}
	}
	return st
}

// Clear drops the whole history.
func (s *Session) Clear() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}

func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
}

func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// LastRewrite is the most recent rewrite shown to the user.
func (s *Session) LastRewrite() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewrite
}

// Submit analyzes in.Text with the session's settings. Blank text is rejected
// before any model call. Every analysis that produces a verdict, real or
// degraded, appends exactly one history entry.
func (s *Session) Submit(ctx context.Context, an Analyzer, in Input) (Submission, error) {
	if strings.TrimSpace(in.Text) == "" {
		return Submission{}, ErrEmptyInput
	}
	if !s.inflight.CompareAndSwap(false, true) {
		return Submission{}, ErrBusy
	}
	defer s.inflight.Store(false)

	st := s.Settings()
	analysis, err := an.Analyze(ctx, toxicity.Request{
		Text:        in.Text,
		Rewrite:     in.Rewrite,
		Tone:        st.Tone,
		Sensitivity: st.Sensitivity,
		Engine:      in.Engine,
	})
	if err != nil {
		return Submission{Analysis: analysis}, err
	}

	r := analysis.Outcome.Result
	entry := HistoryEntry{
		Text:      Truncate(in.Text),
		Toxic:     r.IsToxic,
		Score:     r.Score,
		Timestamp: s.now().Format(TimestampLayout),
	}
	s.mu.Lock()
	s.history = append(s.history, entry)
	if analysis.Rewrite != "" {
		s.rewrite = analysis.Rewrite
	}
	s.mu.Unlock()

	return Submission{ID: uuid.NewString(), Analysis: analysis, Entry: entry}, nil
}

// Truncate shortens text longer than PreviewRunes to that many runes plus an
// ellipsis.
func Truncate(text string) string {
	r := []rune(text)
	if len(r) <= PreviewRunes {
		return text
	}
	return string(r[:PreviewRunes]) + "..."
}
