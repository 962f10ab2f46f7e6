package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"safechat/api/internal/llm"
	"safechat/api/internal/session"
	"safechat/api/internal/toxicity"
)

type AnalyzeRequest struct {
	Text    string `json:"text"`
	Rewrite bool   `json:"rewrite"`
	Tone    string `json:"tone"`
	// Sensitivity defaults to toxicity.DefaultSensitivity when omitted.
	Sensitivity *float64 `json:"sensitivity"`
	LLMName     string   `json:"llm_name"`
}

type AnalyzeResponse struct {
	ID           string          `json:"id"`
	Result       toxicity.Result `json:"result"`
	Status       toxicity.Status `json:"status"`
	RiskLevel    toxicity.Risk   `json:"risk_level"`
	Engine       string          `json:"engine,omitempty"`
	Rewrite      string          `json:"rewrite,omitempty"`
	RewriteError string          `json:"rewrite_error,omitempty"`
}

// Analyze serves POST /v1/toxicity/analyze.
func (h *Handle) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, session.ErrEmptyInput.Error())
		return
	}

	tone := toxicity.Professional
	if req.Tone != "" {
		t, err := toxicity.ParseTone(req.Tone)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		tone = t
	}
	sensitivity := toxicity.DefaultSensitivity
	if req.Sensitivity != nil {
		if err := toxicity.ValidateSensitivity(*req.Sensitivity); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		sensitivity = *req.Sensitivity
	}

	var eng llm.Engine
	if req.LLMName != "" {
		e, err := h.engs.ByName(req.LLMName)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		eng = e
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestDeadline(r))
	defer cancel()

	id := uuid.NewString()
	an, err := h.analyzer.Analyze(ctx, toxicity.Request{
		Text:        req.Text,
		Rewrite:     req.Rewrite,
		Tone:        tone,
		Sensitivity: sensitivity,
		Engine:      eng,
	})
	fields := logrus.Fields{"analysis_id": id, "status": an.Outcome.Status}
	if eng != nil {
		fields["engine"] = eng.Name()
	}
	if err != nil {
		h.log.WithError(err).WithFields(fields).Warn("analyze failed")
		code := http.StatusInternalServerError
		if errors.Is(err, toxicity.ErrDetectionFailed) {
			code = http.StatusBadGateway
		}
		writeJSON(w, code, map[string]string{
			"id":     id,
			"error":  "analyze error: " + err.Error(),
			"status": string(an.Outcome.Status),
		})
		return
	}
	h.log.WithFields(fields).Info("analyzed")

	resp := AnalyzeResponse{
		ID:        id,
		Result:    an.Outcome.Result,
		Status:    an.Outcome.Status,
		RiskLevel: toxicity.RiskLevel(an.Outcome.Result.Score),
		Rewrite:   an.Rewrite,
	}
	if eng != nil {
		resp.Engine = eng.Name()
	}
	if an.RewriteErr != nil {
		resp.RewriteError = an.RewriteErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
