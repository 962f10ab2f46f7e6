package gemini_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safechat/api/internal/llm/gemini"
)

func TestNew_DefaultsModel(t *testing.T) {
	e := gemini.New(" key ", "")
	assert.Equal(t, gemini.DefaultModel, e.GetModel())
	assert.Equal(t, "key", e.APIKey)
	assert.Equal(t, "gemini", e.Name())

	pro := e.WithModel("gemini-2.5-pro")
	assert.Equal(t, "gemini-2.5-pro", pro.GetModel())
	assert.Equal(t, "gemini", pro.Name())
	assert.Equal(t, gemini.DefaultModel, e.GetModel())
}

func TestGenerate_MissingKeyFailsAtCallTime(t *testing.T) {
	e := gemini.New("", "")

	_, err := e.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_API_KEY is empty")
}
