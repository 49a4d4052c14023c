// Package models defines the core domain models for suite and pipeline orchestration.
package models

import "time"

// SuiteLanguage identifies which execution backend family runs a suite.
type SuiteLanguage string

const (
	LanguageJavaScript SuiteLanguage = "javascript" // interpreter sandbox
	LanguagePython     SuiteLanguage = "python"     // remote compile-and-run API
	LanguageGo         SuiteLanguage = "go"         // remote compile-and-run API
	LanguageWeb        SuiteLanguage = "web"        // headless browser runtime
)

// KnownLanguages lists every language the dispatcher can route.
func KnownLanguages() []SuiteLanguage {
	return []SuiteLanguage{LanguageJavaScript, LanguagePython, LanguageGo, LanguageWeb}
}

// Suite is a single test script with run metadata. The last-run fields are
// updated by the suite runner after every execution; persistence failures
// there never affect the run result itself.
type Suite struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"       validate:"required,min=1"`
	Language   SuiteLanguage `json:"language"   validate:"required"`
	Code       string        `json:"code"`
	Tags       []string      `json:"tags,omitempty"`
	LastStatus JobStatus     `json:"last_status,omitempty"`
	LastRunAt  *time.Time    `json:"last_run_at,omitempty"`
	LastLog    string        `json:"last_log,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
