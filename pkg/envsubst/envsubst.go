// Package envsubst rewrites suite source with environment values before
// execution. Both the ${NAME} shorthand and {{.env.NAME}} templates are
// supported.
package envsubst

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"text/template"
)

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Substituter implements the environment-substitution hook consumed by the
// dispatcher.
type Substituter struct {
	env map[string]string
}

// New creates a substituter over the process environment.
func New() *Substituter {
	env := make(map[string]string)

	for _, entry := range os.Environ() {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) == 2 {
			env[parts[0]] = parts[1]
		}
	}

	return &Substituter{env: env}
}

// NewWithEnv creates a substituter over a fixed variable set.
func NewWithEnv(env map[string]string) *Substituter {
	return &Substituter{env: env}
}

// Substitute expands ${NAME} placeholders, then renders {{...}} templates
// when present. Unknown ${NAME} placeholders expand to empty, matching shell
// behavior; template errors are surfaced so a malformed suite fails before
// it reaches a backend.
func (s *Substituter) Substitute(text string) (string, error) {
	expanded := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]

		return s.env[name]
	})

	if !strings.Contains(expanded, "{{") {
		return expanded, nil
	}

	tmpl, err := template.New("envsubst").Option("missingkey=zero").Parse(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to parse substitution template: %w", err)
	}

	envData := make(map[string]any, len(s.env))
	for k, v := range s.env {
		envData[k] = v
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, map[string]any{"env": envData})
	if err != nil {
		return "", fmt.Errorf("failed to execute substitution template: %w", err)
	}

	return buf.String(), nil
}
