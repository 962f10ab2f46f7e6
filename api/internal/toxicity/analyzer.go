package toxicity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"safechat/api/internal/llm"
	"safechat/api/internal/util"
)

var (
	// ErrDetectionFailed is returned under FailClosed when the verdict would
	// otherwise be the default substitute.
	ErrDetectionFailed = errors.New("toxicity detection failed")
	ErrNoEngine        = errors.New("no model engine configured")
)

// FailurePolicy decides what callers see when detection degrades.
type FailurePolicy string

const (
	// FailOpen reports the default safe verdict.
	FailOpen FailurePolicy = "fail-open"
	// FailClosed returns ErrDetectionFailed instead of a verdict.
	FailClosed FailurePolicy = "fail-closed"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailOpen:
		return FailOpen, nil
	case FailClosed:
		return FailClosed, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q: use fail-open | fail-closed", s)
	}
}

// CacheKey identifies a verdict: the same text judged by the same model.
type CacheKey struct {
	TextHash string
	Engine   string
	Model    string
}

// Cache stores successful verdicts. Find returns an error on a miss.
type Cache interface {
	Find(ctx context.Context, key CacheKey) (Result, error)
	Upsert(ctx context.Context, key CacheKey, r Result) error
}

type Request struct {
	Text        string
	Rewrite     bool
	Tone        Tone
	Sensitivity float64
	// Engine overrides the analyzer's default engine when set.
	Engine llm.Engine
}

type Analysis struct {
	Outcome Outcome
	// RewriteRequested is set when a rewrite call was made.
	RewriteRequested bool
	Rewrite          string
	RewriteErr       error
}

type Analyzer struct {
	engine  llm.Engine
	policy  FailurePolicy
	cache   Cache
	metrics *Metrics
	log     *logrus.Logger
	timeout time.Duration
}

type Option func(*Analyzer)

func WithPolicy(p FailurePolicy) Option  { return func(a *Analyzer) { a.policy = p } }
func WithCache(c Cache) Option           { return func(a *Analyzer) { a.cache = c } }
func WithMetrics(m *Metrics) Option      { return func(a *Analyzer) { a.metrics = m } }
func WithLogger(l *logrus.Logger) Option { return func(a *Analyzer) { a.log = l } }
func WithTimeout(d time.Duration) Option { return func(a *Analyzer) { a.timeout = d } }

func NewAnalyzer(engine llm.Engine, opts ...Option) *Analyzer {
	a := &Analyzer{engine: engine, policy: FailOpen}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logrus.StandardLogger()
	}
	return a
}

func (a *Analyzer) Policy() FailurePolicy { return a.policy }

// NeedsRewrite reports whether a rewrite should be requested for r.
func NeedsRewrite(r Result, rewrite bool, sensitivity float64) bool {
	return rewrite && (r.IsToxic || r.Score > sensitivity)
}

// Analyze runs detection and, when asked and warranted, a rewrite.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (Analysis, error) {
	eng := req.Engine
	if eng == nil {
		eng = a.engine
	}

	out := a.Detect(ctx, eng, req.Text)
	a.metrics.observeOutcome(out)
	if out.Status.Degraded() && a.policy == FailClosed {
		return Analysis{Outcome: out}, fmt.Errorf("%w (%s): %w", ErrDetectionFailed, out.Status, out.Err)
	}

	an := Analysis{Outcome: out}
	if !NeedsRewrite(out.Result, req.Rewrite, req.Sensitivity) {
		return an, nil
	}
	an.RewriteRequested = true
	txt, err := a.generate(ctx, eng, "rewrite", RewritePrompt(req.Text, req.Tone))
	a.metrics.observeRewrite(err)
	if err != nil {
		a.log.WithError(err).WithField("engine", engineName(eng)).Warn("rewrite failed")
		an.Rewrite = RewriteUnavailable
		an.RewriteErr = err
		return an, nil
	}
	an.Rewrite = txt
	return an, nil
}

// Detect asks the model for a verdict. It never fails: degraded outcomes carry
// DefaultResult and the cause in Err.
func (a *Analyzer) Detect(ctx context.Context, eng llm.Engine, text string) Outcome {
	if eng == nil {
		return Outcome{Result: DefaultResult(), Status: StatusModelUnavailable, Err: ErrNoEngine}
	}
	key := CacheKey{TextHash: util.TextKey(text), Engine: eng.Name(), Model: eng.GetModel()}
	if a.cache != nil {
		if r, err := a.cache.Find(ctx, key); err == nil {
			return Outcome{Result: r, Status: StatusCached}
		}
	}

	reply, err := a.generate(ctx, eng, "detect", DetectPrompt(text))
	if err != nil {
		a.log.WithError(err).WithField("engine", eng.Name()).Warn("detection call failed, using default verdict")
		return Outcome{Result: DefaultResult(), Status: StatusModelUnavailable, Err: err}
	}
	r, err := ParseReply(reply)
	if err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{
			"engine": eng.Name(),
			"reply":  reply,
		}).Debug("discarding unparsable detection reply")
		return Outcome{Result: DefaultResult(), Status: StatusUnparsable, Err: err}
	}

	if a.cache != nil {
		if err := a.cache.Upsert(ctx, key, r); err != nil {
			a.log.WithError(err).Warn("verdict cache upsert failed")
		}
	}
	return Outcome{Result: r, Status: StatusOK}
}

func (a *Analyzer) generate(ctx context.Context, eng llm.Engine, op, prompt string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	start := time.Now()
	txt, err := eng.Generate(ctx, prompt)
	a.metrics.observeLatency(eng.Name(), op, time.Since(start))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(txt), nil
}

func engineName(e llm.Engine) string {
	if e == nil {
		return ""
	}
	return e.Name()
}
