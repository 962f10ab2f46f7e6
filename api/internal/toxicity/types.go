package toxicity

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultReason is reported when the model gave no reason or its reply was
// discarded.
const DefaultReason = "Analysis completed"

// RewriteUnavailable replaces the rewrite text when the rewrite call fails.
const RewriteUnavailable = "Could not generate rewrite"

var (
	ErrInvalidTone        = errors.New("invalid tone")
	ErrInvalidSensitivity = errors.New("invalid sensitivity")
)

// Result is the model's toxicity verdict.
type Result struct {
	IsToxic    bool     `json:"is_toxic"`
	Score      float64  `json:"score"`
	Reason     string   `json:"reason"`
	Categories []string `json:"categories"`
}

// DefaultResult is the all-safe verdict used when detection degrades.
func DefaultResult() Result {
	return Result{Reason: DefaultReason, Categories: []string{}}
}

type Status string

const (
	StatusOK               Status = "ok"
	StatusCached           Status = "cached"
	StatusModelUnavailable Status = "model_unavailable"
	StatusUnparsable       Status = "unparsable"
)

// Degraded reports whether the verdict is the default substitute rather than
// the model's own judgment.
func (s Status) Degraded() bool {
	return s == StatusModelUnavailable || s == StatusUnparsable
}

// Outcome is the detection step's result. Err is set for degraded statuses.
type Outcome struct {
	Result Result
	Status Status
	Err    error
}

type Tone string

const (
	Professional Tone = "Professional"
	Friendly     Tone = "Friendly"
	Polite       Tone = "Polite"
	Formal       Tone = "Formal"
)

var Tones = []Tone{Professional, Friendly, Polite, Formal}

func ParseTone(s string) (Tone, error) {
	s = strings.TrimSpace(s)
	for _, t := range Tones {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w %q: choose Professional | Friendly | Polite | Formal", ErrInvalidTone, s)
}

const (
	MinSensitivity     = 0.3
	MaxSensitivity     = 0.9
	DefaultSensitivity = 0.6
)

func ValidateSensitivity(v float64) error {
	if v < MinSensitivity || v > MaxSensitivity {
		return fmt.Errorf("%w %.2f: must be between %.1f and %.1f", ErrInvalidSensitivity, v, MinSensitivity, MaxSensitivity)
	}
	return nil
}

type Risk string

const (
	RiskLow    Risk = "Low"
	RiskMedium Risk = "Medium"
	RiskHigh   Risk = "High"
)

// RiskLevel buckets a score independently of the toxic flag.
func RiskLevel(score float64) Risk {
	switch {
	case score > 0.7:
		return RiskHigh
	case score > 0.4:
		return RiskMedium
	default:
		return RiskLow
	}
}
