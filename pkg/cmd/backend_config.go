package cmd

import (
	"os"

	"github.com/scriptflow/scriptflow/pkg/models"
)

// BackendConfigsFromEnv builds the per-language backend configuration from
// the process environment. Missing values are left unset; the backends
// report themselves unavailable instead of failing at startup.
func BackendConfigsFromEnv() map[models.SuiteLanguage]map[string]any {
	sandboxConfig := map[string]any{
		"endpoint": os.Getenv("SANDBOX_ENDPOINT"),
	}

	compileConfig := map[string]any{
		"endpoint": os.Getenv("COMPILE_API_ENDPOINT"),
		"api_key":  os.Getenv("COMPILE_API_KEY"),
	}

	headlessConfig := map[string]any{
		"endpoint": os.Getenv("HEADLESS_ENDPOINT"),
	}

	return map[models.SuiteLanguage]map[string]any{
		models.LanguageJavaScript: sandboxConfig,
		models.LanguagePython:     compileConfig,
		models.LanguageGo:         compileConfig,
		models.LanguageWeb:        headlessConfig,
	}
}
