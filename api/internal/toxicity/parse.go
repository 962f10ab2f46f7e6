package toxicity

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"
)

// ErrMalformedReply wraps every decode failure of a model reply.
var ErrMalformedReply = errors.New("malformed model reply")

const (
	fence     = "```"
	jsonFence = "```json"
)

// ExtractJSON picks the JSON candidate out of a free-text reply: the body of
// the first ```json fence, else of the first bare fence, else the whole
// reply. An unclosed fence runs to the end of the reply. ok is false when
// nothing is left after trimming.
func ExtractJSON(reply string) (string, bool) {
	s := strings.TrimSpace(reply)
	if i := strings.Index(s, jsonFence); i >= 0 {
		s = untilFence(s[i+len(jsonFence):])
	} else if i := strings.Index(s, fence); i >= 0 {
		s = untilFence(s[i+len(fence):])
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func untilFence(s string) string {
	if j := strings.Index(s, fence); j >= 0 {
		return s[:j]
	}
	return s
}

// DecodeResult decodes a JSON object into a Result. Absent or null fields keep
// their defaults; wrongly typed fields make the whole reply malformed.
func DecodeResult(candidate string) (Result, error) {
	var p fastjson.Parser
	v, err := p.Parse(candidate)
	if err != nil {
		return DefaultResult(), fmt.Errorf("%w: %w", ErrMalformedReply, err)
	}
	if v.Type() != fastjson.TypeObject {
		return DefaultResult(), fmt.Errorf("%w: expected object, got %s", ErrMalformedReply, v.Type())
	}

	r := DefaultResult()
	if f := field(v, "is_toxic"); f != nil {
		if r.IsToxic, err = coerceBool(f); err != nil {
			return DefaultResult(), fmt.Errorf("%w: is_toxic: %w", ErrMalformedReply, err)
		}
	}
	if f := field(v, "score"); f != nil {
		if r.Score, err = coerceFloat(f); err != nil {
			return DefaultResult(), fmt.Errorf("%w: score: %w", ErrMalformedReply, err)
		}
		r.Score = clampScore(r.Score)
	}
	if f := field(v, "reason"); f != nil {
		b, err := f.StringBytes()
		if err != nil {
			return DefaultResult(), fmt.Errorf("%w: reason: %w", ErrMalformedReply, err)
		}
		r.Reason = string(b)
	}
	if f := field(v, "categories"); f != nil {
		items, err := f.Array()
		if err != nil {
			return DefaultResult(), fmt.Errorf("%w: categories: %w", ErrMalformedReply, err)
		}
		for i, it := range items {
			b, err := it.StringBytes()
			if err != nil {
				return DefaultResult(), fmt.Errorf("%w: categories[%d]: %w", ErrMalformedReply, i, err)
			}
			r.Categories = append(r.Categories, string(b))
		}
	}
	return r, nil
}

// ParseReply extracts and decodes a model reply, reporting why it failed.
func ParseReply(reply string) (Result, error) {
	candidate, ok := ExtractJSON(reply)
	if !ok {
		return DefaultResult(), fmt.Errorf("%w: empty reply", ErrMalformedReply)
	}
	return DecodeResult(candidate)
}

// ParseResult is the fail-open form of ParseReply: any failure yields
// DefaultResult.
func ParseResult(reply string) Result {
	r, err := ParseReply(reply)
	if err != nil {
		return DefaultResult()
	}
	return r
}

func field(v *fastjson.Value, key string) *fastjson.Value {
	f := v.Get(key)
	if f == nil || f.Type() == fastjson.TypeNull {
		return nil
	}
	return f
}

func coerceBool(v *fastjson.Value) (bool, error) {
	switch v.Type() {
	case fastjson.TypeTrue:
		return true, nil
	case fastjson.TypeFalse:
		return false, nil
	case fastjson.TypeNumber:
		n, err := v.Float64()
		return n != 0, err
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return strconv.ParseBool(strings.ToLower(strings.TrimSpace(string(b))))
	default:
		return false, fmt.Errorf("unexpected %s", v.Type())
	}
}

func coerceFloat(v *fastjson.Value) (float64, error) {
	switch v.Type() {
	case fastjson.TypeNumber:
		return v.Float64()
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	default:
		return 0, fmt.Errorf("unexpected %s", v.Type())
	}
}

func clampScore(s float64) float64 {
	switch {
	case math.IsNaN(s) || s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}
