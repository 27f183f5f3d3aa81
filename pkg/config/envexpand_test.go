package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		env   map[string]string
		want  string
	}{
		{
			name:  "braced substitution",
			input: "bot_display_name: ${BOT_NAME}",
			env:   map[string]string{"BOT_NAME": "Meeting Bot"},
			want:  "bot_display_name: Meeting Bot",
		},
		{
			name:  "bare substitution",
			input: "secret_env: $CREDENTIAL_VAULT_SECRET",
			env:   map[string]string{"CREDENTIAL_VAULT_SECRET": "shh"},
			want:  "secret_env: shh",
		},
		{
			name:  "multiple substitutions in one line",
			input: "url: ${PROTOCOL}://${HOST}:${PORT}",
			env: map[string]string{
				"PROTOCOL": "https",
				"HOST":     "example.com",
				"PORT":     "443",
			},
			want: "url: https://example.com:443",
		},
		{
			name:  "missing variable expands to empty",
			input: "endpoint: ${MISSING_VAR}",
			env:   map[string]string{},
			want:  "endpoint: ",
		},
		{
			name:  "no substitution when no variables",
			input: "static: value",
			env:   map[string]string{"UNUSED": "value"},
			want:  "static: value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			result := ExpandEnv([]byte(tt.input))
			assert.Equal(t, tt.want, string(result))
		})
	}
}

func TestExpandEnvWithEmptyInput(t *testing.T) {
	result := ExpandEnv([]byte(""))
	assert.Equal(t, "", string(result))
}

func TestExpandEnvPreservesOriginalWhenNoVariables(t *testing.T) {
	input := `
# a comment
scheduler:
  max_concurrent_sessions: 10
browser:
  headless: false
`
	result := ExpandEnv([]byte(input))
	assert.Equal(t, input, string(result))
}
