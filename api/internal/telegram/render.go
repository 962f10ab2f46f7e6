package telegram

import (
	"fmt"
	"strings"

	"safechat/api/internal/session"
	"safechat/api/internal/toxicity"
)

const (
	emptyInputText = "⚠️ Please enter some text to analyze!"
	copiedText     = "Copied to clipboard!"
	clearedText    = "🗑 History cleared."
	noHistoryText  = "No messages analyzed yet."
)

func statusLabel(toxic bool) string {
	if toxic {
		return "🔴 Toxic"
	}
	return "🟢 Safe"
}

func formatAnalysis(a toxicity.Analysis) string {
	r := a.Outcome.Result
	var b strings.Builder
	b.WriteString("📊 *Analysis Results*\n\n")
	fmt.Fprintf(&b, "Status: %s\n", statusLabel(r.IsToxic))
	fmt.Fprintf(&b, "Toxicity Score: %.2f\n", r.Score)
	fmt.Fprintf(&b, "Risk Level: %s\n", toxicity.RiskLevel(r.Score))

	if r.Reason != "" {
		b.WriteString("\nℹ️ *Analysis:* ")
		b.WriteString(esc(r.Reason))
		b.WriteString("\n")
	}
	if len(r.Categories) > 0 {
		b.WriteString("⚠️ *Issues detected:* ")
		b.WriteString(esc(strings.Join(r.Categories, ", ")))
		b.WriteString("\n")
	}
	if a.Outcome.Status.Degraded() {
		fmt.Fprintf(&b, "\nℹ️ Model verdict unavailable (%s), default result shown.\n", esc(string(a.Outcome.Status)))
	}
	if a.Rewrite != "" {
		b.WriteString("\n✨ *Suggested Rewrite*\n")
		b.WriteString(esc(a.Rewrite))
		b.WriteString("\n")
	}
	return b.String()
}

func formatStats(st session.Stats) string {
	if st.Total == 0 {
		return noHistoryText
	}
	return fmt.Sprintf("📈 *Session stats*\nMessages Analyzed: %d\nToxic Detected: %d", st.Total, st.Toxic)
}

func formatHistory(h []session.HistoryEntry) string {
	var b strings.Builder
	b.WriteString("🕘 *History*\n")
	for _, e := range h {
		icon := "🟢"
		if e.Toxic {
			icon = "🔴"
		}
		fmt.Fprintf(&b, "%s %s %.2f  %s\n", e.Timestamp, icon, e.Score, esc(e.Text))
	}
	return b.String()
}
