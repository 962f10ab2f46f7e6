package toxicity_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safechat/api/internal/toxicity"
)

const validReply = `{"is_toxic": true, "score": 0.82, "reason": "insult", "categories": ["insult", "harassment"]}`

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  string
		ok    bool
	}{
		{"plain", "  {\"a\":1}\n", `{"a":1}`, true},
		{"json fence", "Here:\n```json\n{\"a\":1}\n```\nthanks", `{"a":1}`, true},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`, true},
		{"json fence wins over earlier bare fence", "``` x ```\n```json\n{\"a\":2}\n```", `{"a":2}`, true},
		{"unclosed fence runs to end", "```json\n{\"a\":1}", `{"a":1}`, true},
		{"empty fence", "```json\n```", "", false},
		{"empty reply", "   ", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := toxicity.ExtractJSON(tc.reply)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseReply_ValidJSON(t *testing.T) {
	r, err := toxicity.ParseReply(validReply)
	require.NoError(t, err)
	assert.Equal(t, toxicity.Result{
		IsToxic:    true,
		Score:      0.82,
		Reason:     "insult",
		Categories: []string{"insult", "harassment"},
	}, r)
}

func TestParseReply_FencedEqualsUnwrapped(t *testing.T) {
	plain, err := toxicity.ParseReply(validReply)
	require.NoError(t, err)

	for _, reply := range []string{
		"```json\n" + validReply + "\n```",
		"Sure! Here is the analysis:\n```json\n" + validReply + "\n```\nLet me know.",
		"```\n" + validReply + "\n```",
	} {
		fenced, err := toxicity.ParseReply(reply)
		require.NoError(t, err)
		assert.Equal(t, plain, fenced)
	}
}

func TestParseReply_CoercesTypes(t *testing.T) {
	r, err := toxicity.ParseReply(`{"is_toxic": "TRUE", "score": "0.5", "categories": []}`)
	require.NoError(t, err)
	assert.True(t, r.IsToxic)
	assert.Equal(t, 0.5, r.Score)
	assert.Equal(t, toxicity.DefaultReason, r.Reason)
	assert.Empty(t, r.Categories)

	r, err = toxicity.ParseReply(`{"is_toxic": 1, "score": 1}`)
	require.NoError(t, err)
	assert.True(t, r.IsToxic)
	assert.Equal(t, 1.0, r.Score)
}

func TestParseReply_MissingFieldsDefault(t *testing.T) {
	r, err := toxicity.ParseReply(`{"score": null}`)
	require.NoError(t, err)
	assert.Equal(t, toxicity.DefaultResult(), r)
}

func TestParseReply_ClampsScore(t *testing.T) {
	r, err := toxicity.ParseReply(`{"score": 7.5}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Score)

	r, err = toxicity.ParseReply(`{"score": -2}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.Score)
}

func TestParseReply_Malformed(t *testing.T) {
	for _, reply := range []string{
		"",
		"The text looks fine to me.",
		`{"is_toxic": true, "score": 0.9`,
		"```json\n{\"is_toxic\": tru\n```",
		`[1, 2, 3]`,
		`"just a string"`,
		`{"score": "high"}`,
		`{"is_toxic": "maybe"}`,
		`{"categories": "insult"}`,
		`{"categories": ["insult", 3]}`,
		`{"reason": 12}`,
	} {
		r, err := toxicity.ParseReply(reply)
		require.Error(t, err, reply)
		assert.True(t, errors.Is(err, toxicity.ErrMalformedReply), reply)
		assert.Equal(t, toxicity.DefaultResult(), r, reply)

		assert.NotPanics(t, func() {
			assert.Equal(t, toxicity.Result{
				IsToxic:    false,
				Score:      0,
				Reason:     "Analysis completed",
				Categories: []string{},
			}, toxicity.ParseResult(reply))
		})
	}
}
