package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"safechat/api/internal/llm"
	"safechat/api/internal/toxicity"
)

const defaultDeadline = 180 * time.Second

// Analyzer is the part of toxicity.Analyzer the handlers need.
type Analyzer interface {
	Analyze(ctx context.Context, req toxicity.Request) (toxicity.Analysis, error)
}

type Handle struct {
	engs     llm.Engines
	analyzer Analyzer
	log      *logrus.Logger
}

func New(engs llm.Engines, analyzer Analyzer, log *logrus.Logger) *Handle {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handle{
		engs:     engs,
		analyzer: analyzer,
		log:      log,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// requestDeadline reads X-Request-Timeout or ?timeoutSec= in seconds.
func requestDeadline(r *http.Request) time.Duration {
	ts := r.Header.Get("X-Request-Timeout")
	if ts == "" {
		ts = r.URL.Query().Get("timeoutSec")
	}
	if v, _ := strconv.Atoi(ts); v > 0 {
		return time.Duration(v) * time.Second
	}
	return defaultDeadline
}
