package envsubst_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptflow/scriptflow/pkg/envsubst"
)

func TestSubstitute_Placeholders(t *testing.T) {
	sub := envsubst.NewWithEnv(map[string]string{
		"API_URL":   "https://api.example.com",
		"API_TOKEN": "t0ken",
	})

	out, err := sub.Substitute(`fetch("${API_URL}/health", {auth: "${API_TOKEN}"})`)
	require.NoError(t, err)
	assert.Equal(t, `fetch("https://api.example.com/health", {auth: "t0ken"})`, out)
}

func TestSubstitute_UnknownPlaceholderExpandsEmpty(t *testing.T) {
	sub := envsubst.NewWithEnv(map[string]string{})

	out, err := sub.Substitute(`base = "${MISSING}"`)
	require.NoError(t, err)
	assert.Equal(t, `base = ""`, out)
}

func TestSubstitute_Templates(t *testing.T) {
	sub := envsubst.NewWithEnv(map[string]string{"STAGE": "canary"})

	out, err := sub.Substitute(`target = "{{.env.STAGE}}"`)
	require.NoError(t, err)
	assert.Equal(t, `target = "canary"`, out)
}

func TestSubstitute_MalformedTemplateFails(t *testing.T) {
	sub := envsubst.NewWithEnv(map[string]string{})

	_, err := sub.Substitute(`{{.env.STAGE`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestSubstitute_PlainTextUntouched(t *testing.T) {
	sub := envsubst.NewWithEnv(map[string]string{"NOISE": "x"})

	out, err := sub.Substitute(`assert(1 + 1 === 2)`)
	require.NoError(t, err)
	assert.Equal(t, `assert(1 + 1 === 2)`, out)
}

func TestSubstitute_DollarWithoutBracesUntouched(t *testing.T) {
	sub := envsubst.NewWithEnv(map[string]string{"HOME": "/home/ci"})

	out, err := sub.Substitute(`const price = "$HOME 100"`)
	require.NoError(t, err)
	assert.Equal(t, `const price = "$HOME 100"`, out)
}
