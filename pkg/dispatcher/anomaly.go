package dispatcher

import "strings"

// failureIndicators are the keywords that mark a nominally-successful
// backend result as suspect.
var failureIndicators = []string{"error", "exception", "failed", "failure"}

// detectAnomaly reports the first failure-indicator keyword found in text,
// case-insensitively.
func detectAnomaly(text string) (string, bool) {
	lowered := strings.ToLower(text)

	for _, keyword := range failureIndicators {
		if strings.Contains(lowered, keyword) {
			return keyword, true
		}
	}

	return "", false
}
