package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("Du bist {{.Name}} bei {{.Bank}}.", map[string]any{
		"Name": "Aria",
		"Bank": "Nordbank AG",
	})

	require.NoError(t, err)
	assert.Equal(t, "Du bist Aria bei Nordbank AG.", out)
}

func TestRenderTemplate_NoMarkersPassThrough(t *testing.T) {
	out, err := RenderTemplate("plain text with } and { braces", nil)

	require.NoError(t, err)
	assert.Equal(t, "plain text with } and { braces", out)
}

func TestRenderTemplate_MissingKeyFails(t *testing.T) {
	_, err := RenderTemplate("Hallo {{.Missing}}", map[string]any{"Name": "Aria"})

	assert.Error(t, err)
}

func TestRenderTemplate_Funcs(t *testing.T) {
	out, err := RenderTemplate(`{{upper .Name}} / {{lower .Name}} / {{default "fallback" .Empty}}`, map[string]any{
		"Name":  "Aria",
		"Empty": "",
	})

	require.NoError(t, err)
	assert.Equal(t, "ARIA / aria / fallback", out)
}

func TestRenderTemplate_InvalidSyntax(t *testing.T) {
	_, err := RenderTemplate("{{.Unclosed", nil)

	assert.Error(t, err)
}
